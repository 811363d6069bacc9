package main

import (
	"bufio"
	"fmt"
	"math/big"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/luxfi/trsa/pkg/coordinator"
	"github.com/luxfi/trsa/pkg/party"
	"github.com/luxfi/trsa/pkg/sigshare"
	"github.com/luxfi/trsa/pkg/trsaerr"
	"github.com/luxfi/trsa/pkg/trsaparams"
	"github.com/luxfi/trsa/pkg/xlog"
)

var (
	numParties int
	threshold  int
	trusted    bool
	bitsSecure int

	rootCmd = &cobra.Command{
		Use:   "trsa-cli",
		Short: "Driver for the threshold RSA signature scheme",
		Long:  `trsa-cli runs an in-process simulation of n parties generating a shared RSA modulus and signing messages under a k-of-n threshold.`,
	}

	setupCmd = &cobra.Command{
		Use:   "setup",
		Short: "Generate a distributed RSA modulus and key shares, then drive the signing loop",
		RunE:  runSetup,
	}

	verifyCmd = &cobra.Command{
		Use:   "verify <n> <e> <message> <signature>",
		Short: "Check that signature^e = message (mod n)",
		Args:  cobra.ExactArgs(4),
		RunE:  runVerify,
	}
)

func init() {
	setupCmd.Flags().IntVarP(&numParties, "parties", "n", 0, "total number of parties (prompted if unset)")
	setupCmd.Flags().IntVarP(&threshold, "threshold", "k", 0, "signing threshold (prompted if unset)")
	setupCmd.Flags().BoolVar(&trusted, "trusted-dealer", false, "use a fast trusted-dealer modulus instead of the fully distributed protocol")
	setupCmd.Flags().IntVar(&bitsSecure, "bits-secure", trsaparams.BitsSecure, "bit length of each prime factor p, q")

	rootCmd.AddCommand(setupCmd, verifyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "trsa-cli: %v\n", err)
		os.Exit(1)
	}
}

func runSetup(cmd *cobra.Command, args []string) error {
	in := bufio.NewReader(os.Stdin)

	n := numParties
	if n <= 0 {
		var err error
		n, err = promptInt(in, "number of parties (n): ")
		if err != nil {
			return err
		}
	}
	k := threshold
	if k <= 0 {
		var err error
		k, err = promptInt(in, "threshold (k, 1 < k <= n): ")
		if err != nil {
			return err
		}
	}

	cfg := coordinator.Config{Mode: coordinator.ModeInteractive, BitsSecure: bitsSecure}
	if trusted {
		cfg.Mode = coordinator.ModeTrusted
	}

	xlog.Info("running setup", "n", n, "k", k, "mode", cfg.Mode)
	state, err := coordinator.Setup(n, k, cfg)
	if err != nil {
		return fmt.Errorf("setup aborted: %w", err)
	}
	xlog.Info("setup complete", "N", state.N.String(), "e", state.E.String())
	fmt.Printf("public key: N=%s e=%s\n", state.N.String(), state.E.String())

	return signLoop(in, state)
}

// signLoop implements spec.md §6's driver surface: after Prompt 3 (the
// first agreement list), repeatedly prompt a message and a new agreement
// list. An empty agreement list leaves every party disagreeing, which
// skips signing silently (error taxonomy case 4) rather than erroring.
func signLoop(in *bufio.Reader, state *coordinator.State) error {
	agreeing, err := promptSubset(in, "comma-separated agreeing party ids (empty = none): ", state.Parties)
	if err != nil {
		return err
	}

	for {
		fmt.Print("message (integer, empty to exit): ")
		line, err := in.ReadString('\n')
		if err != nil {
			xlog.Info("shutting down")
			return nil
		}
		line = strings.TrimSpace(line)
		if line == "" {
			xlog.Info("shutting down")
			return nil
		}
		message, ok := new(big.Int).SetString(line, 10)
		if !ok {
			fmt.Fprintf(os.Stderr, "not an integer: %q\n", line)
			continue
		}

		if len(agreeing) < state.Records[state.Parties[0]].K {
			xlog.Info("fewer than k parties agreed; skipping signing", "agreeing", len(agreeing))
		} else {
			sig, err := coordinator.Sign(state, party.Subset(agreeing), message)
			if err != nil {
				if trsaerr.Is(err, trsaerr.ErrInsufficientAgreement) {
					xlog.Info("agreeing set is not exactly k parties; skipping signing", "agreeing", len(agreeing))
				} else {
					return fmt.Errorf("signing aborted: %w", err)
				}
			} else {
				xlog.Info("signed", "message", message.String(), "signature", sig.String())
				fmt.Printf("message=%s signature=%s\n", message.String(), sig.String())
			}
		}

		agreeing, err = promptSubset(in, "new agreeing party ids (empty = none): ", state.Parties)
		if err != nil {
			return err
		}
	}
}

func runVerify(cmd *cobra.Command, args []string) error {
	n, ok := new(big.Int).SetString(args[0], 0)
	if !ok {
		return fmt.Errorf("invalid N: %q", args[0])
	}
	e, ok := new(big.Int).SetString(args[1], 0)
	if !ok {
		return fmt.Errorf("invalid e: %q", args[1])
	}
	message, ok := new(big.Int).SetString(args[2], 0)
	if !ok {
		return fmt.Errorf("invalid message: %q", args[2])
	}
	signature, ok := new(big.Int).SetString(args[3], 0)
	if !ok {
		return fmt.Errorf("invalid signature: %q", args[3])
	}

	if !sigshare.CheckSignature(signature, e, message, n) {
		fmt.Println("invalid")
		os.Exit(1)
	}
	fmt.Println("valid")
	return nil
}

func promptInt(in *bufio.Reader, label string) (int, error) {
	fmt.Print(label)
	line, err := in.ReadString('\n')
	if err != nil {
		return 0, fmt.Errorf("reading input: %w", err)
	}
	v, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q: %w", line, err)
	}
	return v, nil
}

func promptSubset(in *bufio.Reader, label string, all party.IDSlice) (party.IDSlice, error) {
	fmt.Print(label)
	line, err := in.ReadString('\n')
	if err != nil {
		return nil, nil // EOF: treat as empty agreement, let the caller decide to exit next read
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return party.IDSlice{}, nil
	}
	var out party.IDSlice
	for _, field := range strings.Split(line, ",") {
		idx, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil || idx < 0 || idx >= len(all) {
			return nil, fmt.Errorf("invalid party id %q", field)
		}
		out = append(out, all[idx])
	}
	return out, nil
}
