package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"xdao.co/ledger/ledger"
	"xdao.co/ledger/model"
)

type createOptions struct {
	*rootOptions
	File string
}

func newCreateCommand(root *rootOptions) *cobra.Command {
	opts := &createOptions{rootOptions: root}
	cmd := &cobra.Command{
		Use:   "create [text]",
		Short: "Store text as a new file",
		Long: `Store text as a new file keyed by the operator and print its id.

Example:
  ledgerctl create "hello-ledger"
  ledgerctl create --file notes.txt
  echo hi | ledgerctl create --file -`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := opts.content(cmd, args)
			if err != nil {
				return err
			}
			s, log, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer ledger.CloseSession(s)

			id, err := ledger.CreateResource(cmd.Context(), s, text, 0)
			if err != nil {
				return err
			}
			log.Info("file created", zap.Stringer("file", id))
			return opts.report(cmd, s, result{FileID: id.String()})
		},
	}
	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "read the text from a file (- for stdin)")
	return cmd
}

func (o *createOptions) content(cmd *cobra.Command, args []string) (string, error) {
	switch {
	case o.File != "" && len(args) > 0:
		return "", usageError(fmt.Errorf("give the text as an argument or --file, not both"))
	case len(args) == 1:
		return args[0], nil
	case o.File == "-":
		b, err := io.ReadAll(cmd.InOrStdin())
		return string(b), err
	case o.File != "":
		b, err := os.ReadFile(o.File)
		return string(b), err
	default:
		return "", usageError(fmt.Errorf("nothing to store: give the text as an argument or --file"))
	}
}

func newReadCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "read <file-id>",
		Short: "Print the text stored in a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := model.ParseEntityID(args[0])
			if err != nil {
				return err
			}
			s, _, err := root.open(cmd)
			if err != nil {
				return err
			}
			defer ledger.CloseSession(s)

			text, err := ledger.ReadResource(cmd.Context(), s, id)
			if err != nil {
				return err
			}
			return root.report(cmd, s, result{FileID: id.String(), Content: &text})
		},
	}
}

func newBalanceCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "balance [account-id]",
		Short: "Print an account balance (the operator's by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := root.open(cmd)
			if err != nil {
				return err
			}
			defer ledger.CloseSession(s)

			if len(args) == 0 {
				return root.report(cmd, s, result{})
			}
			account, err := model.ParseEntityID(args[0])
			if err != nil {
				return err
			}
			amount, err := ledger.GetBalance(cmd.Context(), s, account)
			if err != nil {
				return err
			}
			return writeResult(cmd.OutOrStdout(), root.Format, balanceResult(account, amount))
		},
	}
}

func newNetworksCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "networks",
		Short: "List known networks and their nodes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			reg, err := cfg.Registry()
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, name := range reg.Names() {
				set, err := reg.Resolve(name)
				if err != nil {
					return err
				}
				nodes := make([]string, 0, len(set))
				for _, ep := range set {
					nodes = append(nodes, ep.String())
				}
				fmt.Fprintf(w, "%s\t%s\n", name, strings.Join(nodes, " "))
			}
			return nil
		},
	}
}

// report appends the operator balance to r and writes it.
func (o *rootOptions) report(cmd *cobra.Command, s *ledger.Session, r result) error {
	amount, err := ledger.OperatorBalance(cmd.Context(), s)
	if err != nil {
		return err
	}
	b := balanceResult(s.Signer().AccountID, amount)
	r.Account, r.Balance, r.Display = b.Account, b.Balance, b.Display
	return writeResult(cmd.OutOrStdout(), o.Format, r)
}
