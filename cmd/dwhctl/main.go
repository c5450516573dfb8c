package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	dwaws "github.com/sparkify/dwhctl/pkg/aws"
	"github.com/sparkify/dwhctl/pkg/config"
	"github.com/sparkify/dwhctl/pkg/warehouse"
)

const defaultConfigFile = "dwh.cfg"

var (
	createFlag bool
	deleteFlag bool
	statusFlag bool
	withRole   bool
	configFile string

	logLevelStr         string
	logFullTimestamp    bool
	logDisableTimestamp bool
)

var rootCmd = &cobra.Command{
	Use:          "dwhctl",
	Short:        "provisions and tears down the Redshift data warehouse",
	SilenceUsage: true,
	RunE:         runOperation,
}

func init() {
	rootCmd.Flags().BoolVarP(&createFlag, "create", "c", false, "create the IAM role and Redshift cluster")
	rootCmd.Flags().BoolVarP(&deleteFlag, "delete", "d", false, "delete the Redshift cluster")
	rootCmd.Flags().BoolVarP(&statusFlag, "status", "s", false, "print the Redshift cluster status")
	rootCmd.Flags().BoolVar(&withRole, "with-role", false, "with --delete, also detach the policy and delete the IAM role")
	rootCmd.Flags().StringVar(&configFile, "config", defaultConfigFile, "path to the warehouse config file")

	rootCmd.Flags().StringVar(&logLevelStr, "log-level", log.InfoLevel.String(), "log level")
	rootCmd.Flags().BoolVar(&logFullTimestamp, "log-timestamp", true, "log full timestamp if true, otherwise log time since startup")
	rootCmd.Flags().BoolVar(&logDisableTimestamp, "disable-timestamp", false, "disable timestamp logging")
}

func main() {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:    logFullTimestamp,
		DisableTimestamp: logDisableTimestamp,
	})

	rootCmd.ParseFlags(os.Args[1:])

	if err := SetFlagsFromEnv(rootCmd.Flags(), "DWHCTL"); err != nil {
		log.WithError(err).Fatalf("error setting flags from environment variables: %v", err)
	}

	if err := rootCmd.Execute(); err != nil {
		log.WithError(err).Fatalf("error executing command: %v", err)
	}
}

func runOperation(cmd *cobra.Command, _ []string) error {
	// Reject conflicting flags before anything talks to AWS.
	if err := validateOperationFlags(createFlag, deleteFlag, statusFlag); err != nil {
		return err
	}
	if !createFlag && !deleteFlag && !statusFlag {
		return cmd.Help()
	}

	logger := newLogger()
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	iamClient := dwaws.NewIAM(cfg.Region, cfg.AWSKey, cfg.AWSSecret)
	redshiftClient := dwaws.NewRedshift(cfg.Region, cfg.AWSKey, cfg.AWSSecret)
	provisioner := warehouse.New(logger, iamClient, redshiftClient, cfg)

	ctx := setupSignals()

	switch {
	case statusFlag:
		status, err := provisioner.Status(ctx)
		if err != nil {
			return err
		}
		fmt.Println(status)
		return nil
	case createFlag:
		return provisioner.Create(ctx)
	default:
		return provisioner.Delete(ctx, withRole)
	}
}

// validateOperationFlags enforces that at most one of the create/delete/status
// flags is set. Pure validation over the parsed booleans, so it runs before
// any client is constructed.
func validateOperationFlags(create, del, status bool) error {
	var selected []string
	if create {
		selected = append(selected, "--create")
	}
	if del {
		selected = append(selected, "--delete")
	}
	if status {
		selected = append(selected, "--status")
	}
	if len(selected) > 1 {
		return fmt.Errorf("flags %s are mutually exclusive, specify exactly one", strings.Join(selected, ", "))
	}
	return nil
}

// SetFlagsFromEnv parses all registered flags in the given flagset,
// and if they are not already set it attempts to set their values from
// environment variables. Environment variables take the name of the flag but
// are UPPERCASE, and any dashes are replaced by underscores. Environment
// variables additionally are prefixed by the given string followed by
// an underscore. For example, if prefix=PREFIX: some-flag => PREFIX_SOME_FLAG
func SetFlagsFromEnv(fs *pflag.FlagSet, prefix string) (err error) {
	alreadySet := make(map[string]bool)
	fs.Visit(func(f *pflag.Flag) {
		alreadySet[f.Name] = true
	})
	fs.VisitAll(func(f *pflag.Flag) {
		if !alreadySet[f.Name] {
			key := prefix + "_" + strings.ToUpper(strings.Replace(f.Name, "-", "_", -1))
			val := os.Getenv(key)
			if val != "" {
				if serr := fs.Set(f.Name, val); serr != nil {
					err = fmt.Errorf("invalid value %q for %s: %v", val, key, serr)
				}
			}
		}
	})
	return err
}

func setupSignals() context.Context {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sig := <-sigs
		log.Infof("got signal %s, aborting", sig)
		cancel()
	}()
	return ctx
}

func newLogger() log.FieldLogger {
	logger := log.WithFields(log.Fields{
		"app": "dwhctl",
	})
	logLevel, err := log.ParseLevel(logLevelStr)
	if err != nil {
		logger.WithError(err).Fatalf("invalid log level: %s", logLevelStr)
	}
	logger.Logger.Level = logLevel
	return logger
}
