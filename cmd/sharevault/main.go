package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "sharevault"
	app.Usage = "Manage upgradable share-accounting vault"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "config, c",
			Usage:  "Path to the YAML configuration file",
			EnvVar: "SHAREVAULT_CONFIG",
		},
		cli.StringFlag{
			Name:  "account, a",
			Usage: "Address of the calling account (default: the first wallet account)",
		},
	}
	app.Commands = []cli.Command{
		deployCommand(),
		upgradeCommand(),
		addAssetCommand(),
		depositCommand(),
		withdrawCommand(),
		inspectCommand(),
		auditCommand(),
		dumpCommand(),
		layoutCommand(),
	}
	return app
}
