/*
 * Copyright 2025 National Library of Norway.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *       http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package cmd

import (
	"fmt"
	"os"

	homedir "github.com/mitchellh/go-homedir"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nlnwa/warcat/cmd/warcat/cmd/export"
	"github.com/nlnwa/warcat/cmd/warcat/cmd/extract"
	"github.com/nlnwa/warcat/cmd/warcat/cmd/get"
	"github.com/nlnwa/warcat/cmd/warcat/cmd/importcmd"
	"github.com/nlnwa/warcat/cmd/warcat/internal/cmdutil"
	"github.com/nlnwa/warcat/cmd/warcat/cmd/list"
	"github.com/nlnwa/warcat/cmd/warcat/cmd/self"
	"github.com/nlnwa/warcat/cmd/warcat/cmd/verify"
)

type conf struct {
	cfgFile  string
	logLevel string
	logFile  string
	logJSON  bool
	quiet    bool
}

// NewCommand returns a new cobra.Command implementing the root command for warcat
func NewCommand() *cobra.Command {
	c := &conf{}
	cmd := &cobra.Command{
		Use:   "warcat",
		Short: "Read, write, verify and extract WARC files",
		Long: `warcat converts WARC files to and from a line oriented message format,
lists and fetches records, verifies files against the WARC standard and
extracts the stored resources into files.`,
		SilenceUsage: true,
	}

	cobra.OnInitialize(func() { c.initConfig() }, func() { c.initLogging() })

	// Flags
	cmd.PersistentFlags().StringVar(&c.cfgFile, "config", "", "config file (default is $HOME/.warcat.yaml)")
	cmd.PersistentFlags().StringVar(&c.logLevel, "log-level", "info", "log level, one of panic, fatal, error, warn, info, debug or trace")
	cmd.PersistentFlags().StringVar(&c.logFile, "log-file", "", "write log messages to file instead of stderr")
	cmd.PersistentFlags().BoolVar(&c.logJSON, "log-json", false, "write log messages as JSON")
	cmd.PersistentFlags().BoolVarP(&c.quiet, "quiet", "q", false, "only log errors")

	cmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", cmdutil.ErrUsage, err)
	})

	// Subcommands
	cmd.AddCommand(export.NewCommand())
	cmd.AddCommand(importcmd.NewCommand())
	cmd.AddCommand(list.NewCommand())
	cmd.AddCommand(get.NewCommand())
	cmd.AddCommand(extract.NewCommand())
	cmd.AddCommand(verify.NewCommand())
	cmd.AddCommand(self.NewCommand())

	return cmd
}

// initConfig reads in config file and ENV variables if set.
func (c *conf) initConfig() {
	if c.cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(c.cfgFile)
	} else {
		// Find home directory.
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".warcat" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigName(".warcat")
	}

	viper.SetEnvPrefix("WARCAT")
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		log.Debugf("Using config file: %s", viper.ConfigFileUsed())
	}
}

func (c *conf) initLogging() {
	level, err := log.ParseLevel(c.logLevel)
	if err != nil {
		log.Warnf("unknown log level '%s', using info", c.logLevel)
		level = log.InfoLevel
	}
	if c.quiet {
		level = log.ErrorLevel
	}
	log.SetLevel(level)

	if c.logJSON {
		log.SetFormatter(&log.JSONFormatter{})
	}
	if c.logFile != "" {
		f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			log.Errorf("cannot open log file: %v", err)
		} else {
			log.SetOutput(f)
		}
	}
}
