package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/good-yellow-bee/alertd/internal/notifier"
	"github.com/good-yellow-bee/alertd/internal/security"
)

const channelsKeyEnv = "ALERTD_CHANNELS_KEY"

var channelsCmd = &cobra.Command{
	Use:   "channels",
	Short: "Channel file utilities",
}

var channelsSealCmd = &cobra.Command{
	Use:   "seal <file> [output]",
	Short: "Encrypt a channels file",
	Long: `Encrypt a channels YAML file so credentials are not stored in plain text.
The passphrase is read from ALERTD_CHANNELS_KEY or prompted for on a terminal.
The output defaults to <file>.enc. Point notifier.channels_file at the sealed
file and set ALERTD_CHANNELS_KEY when starting the server.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runChannelsSeal,
}

func init() {
	channelsCmd.AddCommand(channelsSealCmd)
	rootCmd.AddCommand(channelsCmd)
}

func runChannelsSeal(cmd *cobra.Command, args []string) error {
	in := args[0]
	out := in
	if len(args) == 2 {
		out = args[1]
	}

	plaintext, err := os.ReadFile(in)
	if err != nil {
		return fmt.Errorf("read channels file: %w", err)
	}
	// Refuse to seal something the server could not load.
	if _, err := notifier.LoadChannelsFromBytes([]byte(os.ExpandEnv(string(plaintext)))); err != nil {
		return err
	}

	passphrase, err := readPassphrase(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	path, err := security.WriteSealedFile(out, plaintext, passphrase)
	if err != nil {
		return fmt.Errorf("seal channels file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "sealed %s -> %s\n", in, path)
	return nil
}

func readPassphrase(prompt io.Writer) ([]byte, error) {
	if key := os.Getenv(channelsKeyEnv); key != "" {
		return []byte(key), nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, fmt.Errorf("%s is not set and stdin is not a terminal", channelsKeyEnv)
	}

	fmt.Fprint(prompt, "Passphrase: ")
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(prompt)
	if err != nil {
		return nil, fmt.Errorf("read passphrase: %w", err)
	}
	fmt.Fprint(prompt, "Confirm passphrase: ")
	second, err := term.ReadPassword(fd)
	fmt.Fprintln(prompt)
	if err != nil {
		return nil, fmt.Errorf("read passphrase: %w", err)
	}
	if len(first) == 0 {
		return nil, fmt.Errorf("passphrase must not be empty")
	}
	if string(first) != string(second) {
		return nil, fmt.Errorf("passphrases do not match")
	}
	return first, nil
}
