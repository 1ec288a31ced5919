package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:   "rapt-decode [hex...]",
		Short: "Decode RAPT Pill manufacturer data",
		Long: "rapt-decode decodes the manufacturer specific data of RAPT Pill advertisements.\n" +
			"Every argument is one manufacturer data field in hex, starting with the little endian company id,\n" +
			"e.g. 52415054... for metrics and 4b4547... for the firmware version.\n" +
			"Without arguments, fields are read from stdin, one advertisement per line.",
		RunE: func(cmd *cobra.Command, args []string) error {
			hwAddr, err := net.ParseMAC(addr)
			if err != nil {
				return errors.Wrap(err, "invalid --addr")
			}

			if len(args) == 0 {
				return runInteractive(cmd.Context(), os.Stdin, cmd.OutOrStdout(), hwAddr)
			}

			return runDecode(cmd.OutOrStdout(), hwAddr, args)
		},
	}

	addr    string
	rssi    int
	verbose bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&addr, "addr", "00:00:00:00:00:00", "sender MAC address, used for naming")
	rootCmd.PersistentFlags().IntVar(&rssi, "rssi", 0, "signal strength to attach to the decoded update, in dBm")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log every decoded update")
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cobra.OnInitialize(func() {
		if verbose {
			zerolog.SetGlobalLevel(zerolog.TraceLevel)
		}
	})

	ctx := context.Background()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("rapt-decode failed")
	}
}

func runInteractive(ctx context.Context, in io.Reader, out io.Writer, hwAddr net.HardwareAddr) error {
	scanner := bufio.NewScanner(in)
	log.Info().Msg("rapt-decode interactive mode. Paste hex manufacturer data and press Enter (Ctrl+D to exit).")
	for ctx.Err() == nil {
		fmt.Fprint(os.Stderr, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := runDecode(out, hwAddr, strings.Fields(line)); err != nil {
			log.Error().Err(err).Str("Input", line).Msg("failed to decode advertisement")
		}
	}
	return scanner.Err()
}

func runDecode(out io.Writer, hwAddr net.HardwareAddr, fields []string) error {
	rep, err := decodeFields(fields, hwAddr, rssi)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")

	return enc.Encode(rep)
}
