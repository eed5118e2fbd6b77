package str

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/strandkv/strand/cmd/util"
	"github.com/strandkv/strand/lib/store"
	"github.com/strandkv/strand/rpc/client"
)

var (
	rpcStore store.IStringStore

	// StringCommands represents the str command group
	StringCommands = &cobra.Command{
		Use:               "str",
		Short:             "Perform string key-value operations against a strand server",
		PersistentPreRunE: setupStringClient,
	}
)

func init() {
	cobra.OnInitialize(util.InitClientConfig)

	util.SetupRPCClientFlags(StringCommands)

	key := "database"
	StringCommands.PersistentFlags().Int(key, 0, util.WrapString("Index of the database to connect to"))

	StringCommands.AddCommand(
		setCmd,
		setNXCmd,
		setEXCmd,
		pSetEXCmd,
		mSetCmd,
		mSetNXCmd,
		getCmd,
		getDelCmd,
		getExCmd,
		getSetCmd,
		mGetCmd,
		strLenCmd,
		appendCmd,
		getRangeCmd,
		setRangeCmd,
		getBitCmd,
		setBitCmd,
		bitCountCmd,
		bitOpCmd,
		infoCmd,
		batchCmd,
		perfTestCmd,
	)
}

// setupStringClient connects the RPC client all str subcommands share.
func setupStringClient(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	config := util.GetClientConfig()

	s, err := util.GetSerializer()
	if err != nil {
		return err
	}

	t, err := util.GetTransport()
	if err != nil {
		return err
	}

	rpcStore, err = client.NewRPCStringStore(util.GetDatabaseID(), *config, t, s)
	return err
}

// opCtx returns the context bounding a single CLI operation.
func opCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), time.Duration(viper.GetInt("timeout"))*time.Second)
}
