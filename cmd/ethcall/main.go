// Command ethcall loads a contract ABI and a connection config, dials
// the configured endpoint, and performs one synchronous eth_call,
// printing the decoded result as JSON. It is a worked example of the
// ABI facade and the RPC connection core used together, the Go
// equivalent of the original library's live-node test harness.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/example/ethrpc/abi"
	"github.com/example/ethrpc/rpcconn"
	"github.com/example/ethrpc/rpctransport"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "ethcall:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath = flag.String("config", "ethcall.yaml", "path to the connection config YAML file")
		abiPath    = flag.String("abi", "", "path to the contract ABI JSON file")
		to         = flag.String("to", "", "contract address to call")
		fn         = flag.String("fn", "", "function name to call")
		argsJSON   = flag.String("args", "[]", "JSON array of positional call arguments")
		timeout    = flag.Duration("timeout", 10*time.Second, "overall call timeout")
	)
	flag.Parse()

	if *abiPath == "" || *to == "" || *fn == "" {
		flag.Usage()
		return fmt.Errorf("-abi, -to, and -fn are required")
	}

	cfg, err := rpcconn.LoadConfig(*configPath)
	if err != nil {
		return err
	}

	abiJSON, err := os.ReadFile(*abiPath)
	if err != nil {
		return fmt.Errorf("read abi file: %w", err)
	}
	contract, err := abi.Parse(abiJSON)
	if err != nil {
		return fmt.Errorf("parse abi: %w", err)
	}

	var args []any
	if err := json.Unmarshal([]byte(*argsJSON), &args); err != nil {
		return fmt.Errorf("parse -args: %w", err)
	}

	conn := rpcconn.New(cfg, rpctransport.GorillaDialer{}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	runCtx, stopRun := context.WithCancel(context.Background())
	defer stopRun()
	go conn.Run(runCtx)

	result, rpcErr, err := conn.EthCallSync(ctx, contract, *to, *fn, args)
	if err != nil {
		return err
	}
	if rpcErr != nil {
		fmt.Fprintln(os.Stderr, "remote error:", string(rpcErr))
		os.Exit(1)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
