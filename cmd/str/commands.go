package str

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/strandkv/strand/cmd/util"
	"github.com/strandkv/strand/lib/command"
)

var (
	setCmd = &cobra.Command{
		Use:   "set [key] [value]",
		Short: "Sets the value for the specified key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := command.Set([]byte(args[0]))
			if err != nil {
				return err
			}
			c, err = c.WithValue([]byte(args[1]))
			if err != nil {
				return err
			}
			if ttl := viper.GetDuration("ttl"); ttl > 0 {
				c = c.Expiring(ttl)
			}
			nx, xx := viper.GetBool("nx"), viper.GetBool("xx")
			if nx && xx {
				return fmt.Errorf("--nx and --xx are mutually exclusive")
			}
			if nx {
				c = c.WithOption(command.SetIfAbsent)
			}
			if xx {
				c = c.WithOption(command.SetIfPresent)
			}

			ctx, cancel := opCtx()
			defer cancel()

			ok, err := rpcStore.Set(ctx, c)
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, ok=%v\n", args[0], ok)
			return nil
		},
	}

	setNXCmd = &cobra.Command{
		Use:   "setnx [key] [value]",
		Short: "Sets the value only if the key does not exist yet",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := command.Set([]byte(args[0]))
			if err != nil {
				return err
			}
			c, err = c.WithValue([]byte(args[1]))
			if err != nil {
				return err
			}

			ctx, cancel := opCtx()
			defer cancel()

			ok, err := rpcStore.SetNX(ctx, c)
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, ok=%v\n", args[0], ok)
			return nil
		},
	}

	setEXCmd = &cobra.Command{
		Use:   "setex [key] [seconds] [value]",
		Short: "Sets the value with a time to live in seconds",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			seconds, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("seconds must be a number: %w", err)
			}
			c, err := command.Set([]byte(args[0]))
			if err != nil {
				return err
			}
			c, err = c.WithValue([]byte(args[2]))
			if err != nil {
				return err
			}
			c = c.Expiring(time.Duration(seconds) * time.Second)

			ctx, cancel := opCtx()
			defer cancel()

			ok, err := rpcStore.SetEX(ctx, c)
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, ok=%v\n", args[0], ok)
			return nil
		},
	}

	pSetEXCmd = &cobra.Command{
		Use:   "psetex [key] [milliseconds] [value]",
		Short: "Sets the value with a time to live in milliseconds",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			millis, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("milliseconds must be a number: %w", err)
			}
			c, err := command.Set([]byte(args[0]))
			if err != nil {
				return err
			}
			c, err = c.WithValue([]byte(args[2]))
			if err != nil {
				return err
			}
			c = c.Expiring(time.Duration(millis) * time.Millisecond)

			ctx, cancel := opCtx()
			defer cancel()

			ok, err := rpcStore.PSetEX(ctx, c)
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, ok=%v\n", args[0], ok)
			return nil
		},
	}

	mSetCmd = &cobra.Command{
		Use:   "mset [key value]...",
		Short: "Sets multiple key-value pairs atomically",
		Args:  pairArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := command.MSet(entriesFromArgs(args))
			if err != nil {
				return err
			}

			ctx, cancel := opCtx()
			defer cancel()

			ok, err := rpcStore.MSet(ctx, c)
			if err != nil {
				return err
			}
			fmt.Printf("keys=%d, ok=%v\n", len(args)/2, ok)
			return nil
		},
	}

	mSetNXCmd = &cobra.Command{
		Use:   "msetnx [key value]...",
		Short: "Sets multiple key-value pairs only if none of the keys exist",
		Args:  pairArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := command.MSet(entriesFromArgs(args))
			if err != nil {
				return err
			}

			ctx, cancel := opCtx()
			defer cancel()

			ok, err := rpcStore.MSetNX(ctx, c)
			if err != nil {
				return err
			}
			fmt.Printf("keys=%d, ok=%v\n", len(args)/2, ok)
			return nil
		},
	}

	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Gets the value for the specified key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := command.NewKey([]byte(args[0]))
			if err != nil {
				return err
			}

			ctx, cancel := opCtx()
			defer cancel()

			value, err := rpcStore.Get(ctx, c)
			if err != nil {
				return err
			}
			printValue(args[0], value)
			return nil
		},
	}

	getDelCmd = &cobra.Command{
		Use:   "getdel [key]",
		Short: "Gets the value for the specified key and deletes the key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := command.NewKey([]byte(args[0]))
			if err != nil {
				return err
			}

			ctx, cancel := opCtx()
			defer cancel()

			value, err := rpcStore.GetDel(ctx, c)
			if err != nil {
				return err
			}
			printValue(args[0], value)
			return nil
		},
	}

	getExCmd = &cobra.Command{
		Use:   "getex [key]",
		Short: "Gets the value for the specified key and updates its time to live",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := command.GetEx([]byte(args[0]))
			if err != nil {
				return err
			}
			if ttl := viper.GetDuration("ttl"); ttl > 0 {
				c = c.Expiring(ttl)
			}

			ctx, cancel := opCtx()
			defer cancel()

			value, err := rpcStore.GetEx(ctx, c)
			if err != nil {
				return err
			}
			printValue(args[0], value)
			return nil
		},
	}

	getSetCmd = &cobra.Command{
		Use:   "getset [key] [value]",
		Short: "Sets the value and returns the previous one",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := command.Set([]byte(args[0]))
			if err != nil {
				return err
			}
			c, err = c.WithValue([]byte(args[1]))
			if err != nil {
				return err
			}

			ctx, cancel := opCtx()
			defer cancel()

			value, err := rpcStore.GetSet(ctx, c)
			if err != nil {
				return err
			}
			printValue(args[0], value)
			return nil
		},
	}

	mGetCmd = &cobra.Command{
		Use:   "mget [key]...",
		Short: "Gets the values for all specified keys",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keys := make([][]byte, len(args))
			for i, arg := range args {
				keys[i] = []byte(arg)
			}
			c, err := command.MGet(keys...)
			if err != nil {
				return err
			}

			ctx, cancel := opCtx()
			defer cancel()

			values, err := rpcStore.MGet(ctx, c)
			if err != nil {
				return err
			}
			for i, value := range values {
				printValue(args[i], value)
			}
			return nil
		},
	}

	strLenCmd = &cobra.Command{
		Use:   "strlen [key]",
		Short: "Returns the length of the value stored at the specified key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := command.NewKey([]byte(args[0]))
			if err != nil {
				return err
			}

			ctx, cancel := opCtx()
			defer cancel()

			length, err := rpcStore.StrLen(ctx, c)
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, length=%d\n", args[0], length)
			return nil
		},
	}

	appendCmd = &cobra.Command{
		Use:   "append [key] [value]",
		Short: "Appends the value to the one stored at the specified key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := command.Append([]byte(args[0]))
			if err != nil {
				return err
			}
			c, err = c.WithValue([]byte(args[1]))
			if err != nil {
				return err
			}

			ctx, cancel := opCtx()
			defer cancel()

			length, err := rpcStore.Append(ctx, c)
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, length=%d\n", args[0], length)
			return nil
		},
	}

	getRangeCmd = &cobra.Command{
		Use:   "getrange [key] [start] [end]",
		Short: "Gets a substring of the value, negative indices count from the end",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("start must be a number: %w", err)
			}
			end, err := strconv.ParseInt(args[2], 10, 64)
			if err != nil {
				return fmt.Errorf("end must be a number: %w", err)
			}
			c, err := command.GetRange([]byte(args[0]))
			if err != nil {
				return err
			}
			c = c.Within(command.NewRange(start, end))

			ctx, cancel := opCtx()
			defer cancel()

			value, err := rpcStore.GetRange(ctx, c)
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, value=%s\n", args[0], value)
			return nil
		},
	}

	setRangeCmd = &cobra.Command{
		Use:   "setrange [key] [offset] [value]",
		Short: "Overwrites part of the value starting at the specified offset",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			offset, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("offset must be a number: %w", err)
			}
			c, err := command.Overwrite([]byte(args[0]))
			if err != nil {
				return err
			}
			c, err = c.WithValue([]byte(args[2]))
			if err != nil {
				return err
			}
			c = c.AtOffset(offset)

			ctx, cancel := opCtx()
			defer cancel()

			length, err := rpcStore.SetRange(ctx, c)
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, length=%d\n", args[0], length)
			return nil
		},
	}

	getBitCmd = &cobra.Command{
		Use:   "getbit [key] [offset]",
		Short: "Returns the bit at the specified offset",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			offset, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("offset must be a number: %w", err)
			}
			c, err := command.GetBit([]byte(args[0]))
			if err != nil {
				return err
			}

			ctx, cancel := opCtx()
			defer cancel()

			bit, err := rpcStore.GetBit(ctx, c.AtOffset(offset))
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, bit=%d\n", args[0], bitToInt(bit))
			return nil
		},
	}

	setBitCmd = &cobra.Command{
		Use:   "setbit [key] [offset] [bit]",
		Short: "Sets the bit at the specified offset and returns the previous bit",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			offset, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("offset must be a number: %w", err)
			}
			var bit bool
			switch args[2] {
			case "0":
				bit = false
			case "1":
				bit = true
			default:
				return fmt.Errorf("bit must be 0 or 1, got %q", args[2])
			}
			c, err := command.SetBit([]byte(args[0]))
			if err != nil {
				return err
			}

			ctx, cancel := opCtx()
			defer cancel()

			prev, err := rpcStore.SetBit(ctx, c.AtOffset(offset).To(bit))
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, previous=%d\n", args[0], bitToInt(prev))
			return nil
		},
	}

	bitCountCmd = &cobra.Command{
		Use:   "bitcount [key]",
		Short: "Counts the set bits in the value, optionally within a byte range",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := command.BitCount([]byte(args[0]))
			if err != nil {
				return err
			}
			start, end := viper.GetInt64("start"), viper.GetInt64("end")
			if cmd.Flags().Changed("start") || cmd.Flags().Changed("end") {
				c = c.Within(command.NewRange(start, end))
			}

			ctx, cancel := opCtx()
			defer cancel()

			count, err := rpcStore.BitCount(ctx, c)
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, count=%d\n", args[0], count)
			return nil
		},
	}

	bitOpCmd = &cobra.Command{
		Use:   "bitop [and|or|xor|not] [destination] [source]...",
		Short: "Combines source values bitwise and stores the result",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var op command.BitOperation
			switch args[0] {
			case "and":
				op = command.BitAnd
			case "or":
				op = command.BitOr
			case "xor":
				op = command.BitXor
			case "not":
				op = command.BitNot
			default:
				return fmt.Errorf("operation must be one of and, or, xor, not, got %q", args[0])
			}
			keys := make([][]byte, len(args)-2)
			for i, arg := range args[2:] {
				keys[i] = []byte(arg)
			}
			c, err := command.Perform(op).OnKeys(keys...)
			if err != nil {
				return err
			}
			c, err = c.AndSaveAs([]byte(args[1]))
			if err != nil {
				return err
			}

			ctx, cancel := opCtx()
			defer cancel()

			length, err := rpcStore.BitOp(ctx, c)
			if err != nil {
				return err
			}
			fmt.Printf("destination=%s, length=%d\n", args[1], length)
			return nil
		},
	}

	infoCmd = &cobra.Command{
		Use:   "info",
		Short: "Prints information about the connected database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opCtx()
			defer cancel()

			info, err := rpcStore.Info(ctx)
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
)

func init() {
	setCmd.Flags().Duration("ttl", 0, util.WrapString("Time to live for the key (0 for no expiration)"))
	setCmd.Flags().Bool("nx", false, util.WrapString("Only set the key if it does not exist yet"))
	setCmd.Flags().Bool("xx", false, util.WrapString("Only set the key if it already exists"))

	getExCmd.Flags().Duration("ttl", 0, util.WrapString("New time to live for the key (0 removes any expiration)"))

	bitCountCmd.Flags().Int64("start", 0, util.WrapString("First byte of the counted range, negative counts from the end"))
	bitCountCmd.Flags().Int64("end", -1, util.WrapString("Last byte of the counted range, negative counts from the end"))
}

// pairArgs accepts a non-empty, even argument list of alternating keys and values.
func pairArgs(_ *cobra.Command, args []string) error {
	if len(args) == 0 || len(args)%2 != 0 {
		return fmt.Errorf("requires key value pairs, got %d arguments", len(args))
	}
	return nil
}

func entriesFromArgs(args []string) map[string][]byte {
	entries := make(map[string][]byte, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		entries[args[i]] = []byte(args[i+1])
	}
	return entries
}

func printValue(key string, value []byte) {
	fmt.Printf("key=%s, found=%v, value=%s\n", key, value != nil, value)
}

func bitToInt(bit bool) int {
	if bit {
		return 1
	}
	return 0
}
