package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/nutmint/gonuts/cashu"
	"github.com/nutmint/gonuts/wallet"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

var nutw *wallet.Wallet

func walletPath() string {
	homedir, err := os.UserHomeDir()
	if err != nil {
		log.Fatal(err)
	}

	path := filepath.Join(homedir, ".gonuts", "wallet")
	if err := os.MkdirAll(path, 0700); err != nil {
		log.Fatal(err)
	}
	return path
}

func setupWallet(ctx *cli.Context) error {
	path := walletPath()

	envPath := filepath.Join(path, ".env")
	if _, err := os.Stat(envPath); err != nil {
		if wd, err := os.Getwd(); err == nil {
			envPath = filepath.Join(wd, ".env")
		}
	}
	if err := godotenv.Load(envPath); err != nil {
		log.Println("no .env file found, reading config from the environment")
	}

	config := wallet.GetConfig()
	config.WalletPath = path

	var err error
	nutw, err = wallet.LoadWallet(config)
	if err != nil {
		printErr(err)
	}
	return nil
}

func main() {
	app := &cli.App{
		Name:  "nutw",
		Usage: "cashu wallet",
		Commands: []*cli.Command{
			balanceCmd,
			mintCmd,
			sendCmd,
			receiveCmd,
			payCmd,
			decodeCmd,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

var balanceCmd = &cli.Command{
	Name:   "balance",
	Usage:  "Wallet balance",
	Before: setupWallet,
	Action: getBalance,
}

func getBalance(ctx *cli.Context) error {
	fmt.Printf("Balance: %v sats\n", nutw.GetBalance())
	return nil
}

const invoiceFlag = "invoice"

var mintCmd = &cli.Command{
	Name:      "mint",
	Usage:     "Request a Lightning invoice to mint tokens, or redeem one already paid",
	ArgsUsage: "[AMOUNT]",
	Before:    setupWallet,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  invoiceFlag,
			Usage: "hash returned alongside the invoice, to redeem tokens once it is paid",
		},
	},
	Action: mint,
}

func mint(ctx *cli.Context) error {
	args := ctx.Args()
	if args.Len() < 1 {
		printErr(errors.New("specify an amount to mint"))
	}
	amount, err := parseAmount(args.First())
	if err != nil {
		printErr(err)
	}

	if ctx.IsSet(invoiceFlag) {
		token, err := nutw.MintTokens(amount, ctx.String(invoiceFlag))
		if err != nil {
			printErr(err)
		}
		fmt.Printf("%v sats successfully minted\n", token.Amount())
		return nil
	}

	req, err := nutw.GetMintPaymentRequest(amount)
	if err != nil {
		printErr(err)
	}
	fmt.Printf("invoice: %v\n\n", req.PR)
	fmt.Printf("after paying the invoice, redeem the ecash with:\n\n  nutw mint %v --invoice %v\n", amount, req.Hash)
	return nil
}

var sendCmd = &cli.Command{
	Name:      "send",
	Usage:     "Generate a token to send for the specified amount",
	ArgsUsage: "[AMOUNT]",
	Before:    setupWallet,
	Action:    send,
}

func send(ctx *cli.Context) error {
	args := ctx.Args()
	if args.Len() < 1 {
		printErr(errors.New("specify an amount to send"))
	}
	amount, err := parseAmount(args.First())
	if err != nil {
		printErr(err)
	}

	token, err := nutw.Send(amount)
	if err != nil {
		printErr(err)
	}

	serialized, err := token.Serialize()
	if err != nil {
		printErr(err)
	}
	fmt.Println(serialized)
	return nil
}

var receiveCmd = &cli.Command{
	Name:      "receive",
	Usage:     "Receive a token",
	ArgsUsage: "[TOKEN]",
	Before:    setupWallet,
	Action:    receive,
}

func receive(ctx *cli.Context) error {
	args := ctx.Args()
	if args.Len() < 1 {
		printErr(errors.New("token not provided"))
	}

	token, err := cashu.DecodeToken(args.First())
	if err != nil {
		printErr(err)
	}

	if err := nutw.ReceiveTokens(token); err != nil {
		printErr(err)
	}
	fmt.Printf("%v sats received\n", token.Amount())
	return nil
}

var payCmd = &cli.Command{
	Name:      "pay",
	Usage:     "Pay a Lightning invoice",
	ArgsUsage: "[INVOICE]",
	Before:    setupWallet,
	Action:    pay,
}

func pay(ctx *cli.Context) error {
	args := ctx.Args()
	if args.Len() < 1 {
		printErr(errors.New("specify a lightning invoice to pay"))
	}

	meltResponse, err := nutw.PayInvoice(args.First())
	if err != nil {
		printErr(err)
	}
	fmt.Printf("invoice paid: %v\n", meltResponse.Paid)
	return nil
}

var decodeCmd = &cli.Command{
	Name:      "decode",
	Usage:     "Decode a token",
	ArgsUsage: "[TOKEN]",
	Action:    decode,
}

func decode(ctx *cli.Context) error {
	args := ctx.Args()
	if args.Len() < 1 {
		printErr(errors.New("token not provided"))
	}

	token, err := cashu.DecodeToken(args.First())
	if err != nil {
		printErr(err)
	}

	jsonToken, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		printErr(err)
	}
	fmt.Println(string(jsonToken))
	return nil
}

func parseAmount(s string) (uint64, error) {
	var amount uint64
	if _, err := fmt.Sscanf(s, "%d", &amount); err != nil {
		return 0, errors.New("invalid amount")
	}
	return amount, nil
}

func printErr(msg error) {
	fmt.Println(msg.Error())
	os.Exit(1)
}
