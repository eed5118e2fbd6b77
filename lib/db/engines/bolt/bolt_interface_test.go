package bolt

import (
	"path/filepath"
	"testing"

	"github.com/strandkv/strand/lib/db"
	dbtesting "github.com/strandkv/strand/lib/db/testing"
)

func testFactory(t testing.TB) dbtesting.DBFactory {
	return func() db.StringDB {
		d, err := Open(DBOptions{
			Path:   filepath.Join(t.TempDir(), "strand.db"),
			NoSync: true,
		})
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		return d
	}
}

func Test(t *testing.T) {
	dbtesting.RunStringDBTests(t, "BoltDB", testFactory(t))
}

func Benchmark(t *testing.B) {
	dbtesting.RunStringDBBenchmarks(t, "BoltDB", testFactory(t))
}

/*
BENCH RESULTS (AMD Ryzen 7 5800X, 32GB RAM, Debian 12, NVMe SSD, NoSync,
go version go1.23.4 linux/amd64):

goos: linux
goarch: amd64
pkg: github.com/strandkv/strand/lib/db/engines/bolt
cpu: AMD Ryzen 7 5800X 8-Core Processor
Benchmark
Benchmark/Set
Benchmark/Set-16         	   58762	     20431 ns/op
Benchmark/SetExisting
Benchmark/SetExisting-16 	   61220	     19584 ns/op
Benchmark/SetLargeValue
Benchmark/SetLargeValue-16         	    1582	    758241 ns/op
Benchmark/SetWithExpiry
Benchmark/SetWithExpiry-16         	   57914	     20718 ns/op
Benchmark/SetCond
Benchmark/SetCond-16               	   55190	     21630 ns/op
Benchmark/Update
Benchmark/Update-16                	   53811	     22305 ns/op
Benchmark/Get
Benchmark/Get-16                   	  802226	      1496 ns/op
Benchmark/Delete
Benchmark/Delete-16                	   60418	     19855 ns/op
Benchmark/Has
Benchmark/Has-16                   	  794613	      1510 ns/op
Benchmark/Has(not)
Benchmark/Has(not)-16              	  942185	      1271 ns/op
Benchmark/SaveLoad
Benchmark/SaveLoad/Save
Benchmark/SaveLoad/Save-16         	     511	   2339160 ns/op
Benchmark/MixedUsage
Benchmark/MixedUsage-16            	  131020	      9136 ns/op
Benchmark/MixedUsageWithExpiry
Benchmark/MixedUsageWithExpiry-16  	  148470	      8063 ns/op
PASS

Process finished with the exit code 0
*/
