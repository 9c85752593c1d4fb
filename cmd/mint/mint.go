package main

import (
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/nutmint/gonuts/mint"
	"github.com/nutmint/gonuts/mint/lightning"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

func lightningClientFromEnv() (lightning.Client, error) {
	switch os.Getenv("LIGHTNING_BACKEND") {
	case "Lnd":
		return lightning.CreateLndClient()
	case "FakeBackend":
		return &lightning.FakeBackend{}, nil
	default:
		return nil, errors.New("LIGHTNING_BACKEND must be one of 'Lnd', 'FakeBackend'")
	}
}

func serve(ctx *cli.Context) error {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, reading config from the environment")
	}

	config := mint.GetConfig()
	lightningClient, err := lightningClientFromEnv()
	if err != nil {
		return err
	}

	server, err := mint.SetupMintServer(config, lightningClient)
	if err != nil {
		return err
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sig
		log.Println("shutting down mint")
		os.Exit(0)
	}()

	return server.Start(config.Port)
}

func main() {
	app := &cli.App{
		Name:  "mint",
		Usage: "run a Cashu mint",
		Action: func(ctx *cli.Context) error {
			return serve(ctx)
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
