package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/garyjia/gstr1-reconciler/internal/application/service"
	"github.com/garyjia/gstr1-reconciler/internal/gateway"
	"github.com/garyjia/gstr1-reconciler/internal/models"
	"github.com/garyjia/gstr1-reconciler/internal/processor"
	"github.com/garyjia/gstr1-reconciler/internal/repository"
	"github.com/garyjia/gstr1-reconciler/internal/schema"
	"github.com/garyjia/gstr1-reconciler/internal/storage"
	"github.com/garyjia/gstr1-reconciler/pkg/utils"
)

// cliPartyID is the folder generated workbooks land in when no party name is given
const cliPartyID = "party"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "gstr1",
		Short:        "Reconcile GSTR-1 section extracts into the offline-tool workbook",
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	root.AddCommand(newProcessCmd())
	return root
}

func newProcessCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "process [file.csv...]",
		Short: "Build a GSTR-1 workbook from section CSV extracts",
		Long: `Each file is routed to a template sheet by the section keyword in its name
(b2b, b2cs, hsn, docs, exempt, ...). With --reconcile, B2B counterparties are
verified and failing invoices move to B2CS; an error list workbook is written
alongside the return.

Flags may also be set through GSTR1_* environment variables, for example
GSTR1_GATEWAY_URL or GSTR1_PRODUCT.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			verbose, _ := cmd.Flags().GetBool("verbose")
			return runProcess(cmd.Context(), cmd.OutOrStdout(), v, args, verbose)
		},
	}

	flags := cmd.Flags()
	flags.String("dialect", string(schema.DialectStandard), "Column naming of the extracts: standard or tally")
	flags.String("party", "", "Party name used in the workbook file names")
	flags.String("gstin", "", "GSTIN of the filing party; its state code is the place of supply for moved invoices")
	flags.String("product", processor.DefaultProductName, "Product name prefix of the workbook file name")
	flags.Bool("reconcile", false, "Verify B2B counterparties and move failing invoices to B2CS")
	flags.String("out", ".", "Output directory")
	flags.String("gateway-url", "", "Base URL of the verification gateway")
	flags.Bool("simulate", false, "Use the built-in simulated registry instead of a gateway")
	flags.Int("concurrency", 1, "Parallel gateway lookups within one file")
	flags.Duration("timeout", gateway.DefaultTimeout, "Per-lookup gateway timeout")
	flags.Bool("no-cache", false, "Disable the per-run verdict cache")

	_ = v.BindPFlags(flags)
	v.SetEnvPrefix("GSTR1")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	return cmd
}

func runProcess(ctx context.Context, out io.Writer, v *viper.Viper, paths []string, verbose bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	logger, err := utils.NewCLILogger(verbose)
	if err != nil {
		return err
	}
	defer logger.Sync()

	dialect, err := schema.ParseDialect(v.GetString("dialect"))
	if err != nil {
		return err
	}

	var verifier gateway.Verifier
	reconcile := v.GetBool("reconcile")
	if reconcile {
		client, err := gateway.New(gateway.Options{
			URL:      v.GetString("gateway-url"),
			Timeout:  v.GetDuration("timeout"),
			Simulate: v.GetBool("simulate"),
		}, logger)
		if err != nil {
			return fmt.Errorf("--reconcile needs --gateway-url or --simulate: %w", err)
		}
		verifier = client
	}

	partyName := strings.TrimSpace(v.GetString("party"))
	partyID := storage.SanitizeFolderName(partyName)
	if partyID == "" {
		partyID = cliPartyID
	}

	store := repository.NewMemoryStore()
	artifacts := storage.NewArtifactStore(v.GetString("out"), logger)
	parties := service.NewPartyService(store, artifacts, logger)

	party := &models.User{
		ID:       partyID,
		Username: partyID,
		FullName: partyName,
		Role:     models.RoleCustomer,
		GSTIN:    v.GetString("gstin"),
	}
	if err := parties.RegisterUser(ctx, party); err != nil {
		return err
	}

	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		if _, err := parties.UploadFile(ctx, party.ID, service.UploadRequest{
			FileName: filepath.Base(path),
			Content:  content,
		}); err != nil {
			return err
		}
	}

	concurrency := v.GetInt("concurrency")
	if concurrency < 1 {
		concurrency = 1
	}
	runner := processor.NewProcessor(verifier, processor.Config{
		VerifyConcurrency: concurrency,
		CacheVerdicts:     !v.GetBool("no-cache"),
	}, logger)
	compliance := service.NewComplianceService(store, runner, artifacts, service.Defaults{
		ProductName: v.GetString("product"),
		Dialect:     dialect,
	}, logger)

	start := time.Now()
	outcome, err := compliance.ProcessParty(ctx, party.ID, service.ProcessRequest{
		Dialect:   string(dialect),
		Reconcile: reconcile,
	})
	if outcome != nil {
		for _, p := range outcome.Progress {
			fmt.Fprintf(out, "[%3d%%] %s\n", p.Percent, p.Message)
		}
	}
	if err != nil {
		return err
	}

	logger.Debug("Run finished", zap.Duration("elapsed", time.Since(start)))
	printOutcome(out, v.GetString("out"), party.ID, outcome)
	return nil
}

func printOutcome(out io.Writer, dir, partyID string, outcome *service.ProcessOutcome) {
	folder := filepath.Join(dir, partyID)
	fmt.Fprintf(out, "Workbook:   %s\n", filepath.Join(folder, outcome.Workbook))
	if outcome.ErrorList != "" {
		fmt.Fprintf(out, "Error list: %s\n", filepath.Join(folder, outcome.ErrorList))
	}
	for _, name := range outcome.FilesSkipped {
		fmt.Fprintf(out, "Skipped:    %s\n", name)
	}
	if outcome.ErrorCount > 0 {
		fmt.Fprintf(out, "Moved %d invoice(s) to B2CS, taxable value %s\n", outcome.ErrorCount, outcome.TotalTaxableShifted.String())
	}
	if s := outcome.Summary; s != nil && s.Adjusted {
		fmt.Fprintf(out, "HSN summary: %s absorbs %s (balanced: %t)\n", s.HSNCode, s.Amount.String(), s.Balanced())
	}
}
