package str

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/strandkv/strand/cmd/util"
	"github.com/strandkv/strand/lib/command"
	"github.com/strandkv/strand/lib/pipeliner"
)

var batchCmd = &cobra.Command{
	Use:   "batch [set|setnx|append|get|getdel|strlen]",
	Short: "Executes a stream of commands read from stdin",
	Long: util.WrapString(
		`Executes a stream of commands read from stdin through the pipeliner. Commands overlap on the connection up to --max-in-flight, results print in input order. Write operations (set, setnx, append) expect one "key value" pair per line, split on the first space. Read operations (get, getdel, strlen) expect one key per line.`,
	),
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	key := "max-in-flight"
	batchCmd.Flags().Int(key, 16, util.WrapString("Maximum number of commands awaiting a result at once"))
}

func runBatch(_ *cobra.Command, args []string) error {
	p := pipeliner.NewPipeliner(rpcStore, viper.GetInt("max-in-flight"))
	ctx := context.Background()

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var total, failed int
	count := func(err error) {
		total++
		if err != nil {
			failed++
		}
	}

	// The feeder goroutines below stop on the first malformed line and
	// record why; commands fed before that still complete and print.
	var feedErr error

	switch op := args[0]; op {
	case "set":
		for resp := range p.Set(ctx, feedSetCommands(scanner, &feedErr)) {
			count(resp.Err())
			printBatchOk(resp.Input().Key(), resp.Output(), resp.Err())
		}
	case "setnx":
		for resp := range p.SetNX(ctx, feedSetCommands(scanner, &feedErr)) {
			count(resp.Err())
			printBatchOk(resp.Input().Key(), resp.Output(), resp.Err())
		}
	case "append":
		for resp := range p.Append(ctx, feedAppendCommands(scanner, &feedErr)) {
			count(resp.Err())
			printBatchLen(resp.Input().Key(), resp.Output(), resp.Err())
		}
	case "get":
		for resp := range p.Get(ctx, feedKeyCommands(scanner, &feedErr)) {
			count(resp.Err())
			printBatchValue(resp.Input().Key(), resp.Output(), resp.Err())
		}
	case "getdel":
		for resp := range p.GetDel(ctx, feedKeyCommands(scanner, &feedErr)) {
			count(resp.Err())
			printBatchValue(resp.Input().Key(), resp.Output(), resp.Err())
		}
	case "strlen":
		for resp := range p.StrLen(ctx, feedKeyCommands(scanner, &feedErr)) {
			count(resp.Err())
			printBatchLen(resp.Input().Key(), resp.Output(), resp.Err())
		}
	default:
		return fmt.Errorf("unknown batch operation: %s", op)
	}

	if feedErr != nil {
		return feedErr
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read stdin: %w", err)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d commands failed", failed, total)
	}
	return nil
}

// feedKeyCommands streams one key command per input line.
func feedKeyCommands(scanner *bufio.Scanner, feedErr *error) <-chan command.KeyCommand {
	out := make(chan command.KeyCommand)
	go func() {
		defer close(out)
		for scanner.Scan() {
			c, err := command.NewKey([]byte(scanner.Text()))
			if err != nil {
				*feedErr = err
				return
			}
			out <- c
		}
	}()
	return out
}

// feedSetCommands streams one set command per "key value" input line.
func feedSetCommands(scanner *bufio.Scanner, feedErr *error) <-chan command.SetCommand {
	out := make(chan command.SetCommand)
	go func() {
		defer close(out)
		for scanner.Scan() {
			key, value, found := strings.Cut(scanner.Text(), " ")
			if !found {
				*feedErr = fmt.Errorf("line %q is not a key value pair", scanner.Text())
				return
			}
			c, err := command.Set([]byte(key))
			if err != nil {
				*feedErr = err
				return
			}
			c, err = c.WithValue([]byte(value))
			if err != nil {
				*feedErr = err
				return
			}
			out <- c
		}
	}()
	return out
}

// feedAppendCommands streams one append command per "key value" input line.
func feedAppendCommands(scanner *bufio.Scanner, feedErr *error) <-chan command.AppendCommand {
	out := make(chan command.AppendCommand)
	go func() {
		defer close(out)
		for scanner.Scan() {
			key, value, found := strings.Cut(scanner.Text(), " ")
			if !found {
				*feedErr = fmt.Errorf("line %q is not a key value pair", scanner.Text())
				return
			}
			c, err := command.Append([]byte(key))
			if err != nil {
				*feedErr = err
				return
			}
			c, err = c.WithValue([]byte(value))
			if err != nil {
				*feedErr = err
				return
			}
			out <- c
		}
	}()
	return out
}

func printBatchOk(key []byte, ok bool, err error) {
	if err != nil {
		fmt.Printf("key=%s, error=%v\n", key, err)
		return
	}
	fmt.Printf("key=%s, ok=%v\n", key, ok)
}

func printBatchLen(key []byte, length int64, err error) {
	if err != nil {
		fmt.Printf("key=%s, error=%v\n", key, err)
		return
	}
	fmt.Printf("key=%s, length=%d\n", key, length)
}

func printBatchValue(key []byte, value []byte, err error) {
	if err != nil {
		fmt.Printf("key=%s, error=%v\n", key, err)
		return
	}
	fmt.Printf("key=%s, found=%v, value=%s\n", key, value != nil, value)
}
