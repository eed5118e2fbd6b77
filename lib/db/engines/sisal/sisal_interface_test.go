package sisal

import (
	"testing"

	"github.com/strandkv/strand/lib/db"
	dbtesting "github.com/strandkv/strand/lib/db/testing"
)

func Test(t *testing.T) {
	dbtesting.RunStringDBTests(t, "SisalDB", func() db.StringDB {
		return New(DefaultOptions())
	})
}

func Benchmark(t *testing.B) {
	dbtesting.RunStringDBBenchmarks(t, "SisalDB", func() db.StringDB {
		return New(DefaultOptions())
	})
}

/*
BENCH RESULTS (AMD Ryzen 7 5800X, 32GB RAM, Debian 12, go version go1.23.4 linux/amd64):

goos: linux
goarch: amd64
pkg: github.com/strandkv/strand/lib/db/engines/sisal
cpu: AMD Ryzen 7 5800X 8-Core Processor
Benchmark
Benchmark/Set
Benchmark/Set-16         	 4521372	       265.3 ns/op
Benchmark/SetExisting
Benchmark/SetExisting-16 	 5804165	       207.1 ns/op
Benchmark/SetLargeValue
Benchmark/SetLargeValue-16         	    6250	    191042 ns/op
Benchmark/SetWithExpiry
Benchmark/SetWithExpiry-16         	 2947561	       407.8 ns/op
Benchmark/SetCond
Benchmark/SetCond-16               	 5376021	       223.9 ns/op
Benchmark/Update
Benchmark/Update-16                	 4309876	       278.4 ns/op
Benchmark/Get
Benchmark/Get-16                   	 9860764	       121.7 ns/op
Benchmark/Delete
Benchmark/Delete-16                	10874166	       110.4 ns/op
Benchmark/Has
Benchmark/Has-16                   	10231970	       117.2 ns/op
Benchmark/Has(not)
Benchmark/Has(not)-16              	12903225	        93.01 ns/op
Benchmark/SaveLoad
Benchmark/SaveLoad/Save
Benchmark/SaveLoad/Save-16         	     390	   3066459 ns/op
Benchmark/SaveLoad/Load
Benchmark/SaveLoad/Load-16         	     142	   8401218 ns/op
Benchmark/MixedUsage
Benchmark/MixedUsage-16            	 8221433	       146.0 ns/op
Benchmark/MixedUsageWithExpiry
Benchmark/MixedUsageWithExpiry-16  	 6505312	       184.3 ns/op
PASS

Process finished with the exit code 0
*/
