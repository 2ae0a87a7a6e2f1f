package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"chatsweep/internal/action"
	"chatsweep/internal/catalog"
	"chatsweep/internal/config"
	"chatsweep/internal/contextutil"
	"chatsweep/internal/decrypt"
	"chatsweep/internal/filter"
	"chatsweep/internal/layout"
	"chatsweep/internal/store"
)

var (
	forceDecrypt bool
	groupIDs     []string
	allGroups    bool
	days         int
	fromDate     string
	toDate       string
	dryRun       bool
	moveTo       string
	flatten      bool
	assumeYes    bool
	workers      int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "chatsweep",
		Short: "Reclaim disk space from chat media",
		Long: "chatsweep decrypts a chat application's local databases, indexes the media\n" +
			"files they reference, and deletes or archives a selected subset while never\n" +
			"rewriting the source databases.",
		SilenceUsage: true,
	}

	decryptCmd := &cobra.Command{
		Use:   "decrypt",
		Short: "Decrypt the source databases into reusable plaintext artifacts",
		RunE:  runDecrypt,
	}
	decryptCmd.Flags().BoolVar(&forceDecrypt, "force", false, "Re-decrypt even when artifacts exist")

	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "List groups with their resident media footprint",
		RunE:  runScan,
	}

	cleanCmd := &cobra.Command{
		Use:   "clean",
		Short: "Delete or archive media for selected groups and time range",
		RunE:  runClean,
	}
	cleanCmd.Flags().StringSliceVar(&groupIDs, "groups", nil, "Group ids to target")
	cleanCmd.Flags().BoolVar(&allGroups, "all-groups", false, "Target every group")
	cleanCmd.Flags().IntVar(&days, "days", 0, "Only touch files older than this many days")
	cleanCmd.Flags().StringVar(&fromDate, "from", "", "Range start (YYYY-MM-DD, inclusive)")
	cleanCmd.Flags().StringVar(&toDate, "to", "", "Range end (YYYY-MM-DD, inclusive)")
	cleanCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate without touching the filesystem")
	cleanCmd.Flags().StringVar(&moveTo, "move-to", "", "Archive into this directory instead of deleting")
	cleanCmd.Flags().BoolVar(&flatten, "flatten", false, "Archive without group/month structure")
	cleanCmd.Flags().BoolVar(&assumeYes, "yes", false, "Skip the confirmation prompt")
	cleanCmd.Flags().IntVar(&workers, "workers", 0, "Parallel file operations (default from config)")

	rootCmd.AddCommand(decryptCmd, scanCmd, cleanCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setup loads config, wires slog, and returns a signal-aware context whose
// logger every pipeline stage shares.
func setup() (context.Context, context.CancelFunc, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load configuration: %w", err)
	}

	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	ctx = contextutil.WithLogger(ctx, logger)
	return ctx, cancel, cfg, nil
}

// readKey loads and trims the decryption key.
func readKey(cfg *config.Config) (string, error) {
	path := cfg.KeyPath
	if path == "" {
		path = config.DiscoverKeyPath()
	}
	if path == "" {
		return "", fmt.Errorf("no key file found; set CHATSWEEP_KEY_PATH or place sqlcipher.key in the working directory")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read key file %s: %w", path, err)
	}
	return strings.TrimSpace(string(raw)), nil
}

// ensureArtifacts decrypts both databases unless their artifacts already
// exist, and returns the plaintext paths.
func ensureArtifacts(ctx context.Context, cfg *config.Config, force bool) (filesDB, groupDB string, err error) {
	filesDB = config.CleanDBPath(cfg.FilesDBPath())
	groupDB = config.CleanDBPath(cfg.GroupDBPath())

	needKey := force
	if _, err := os.Stat(filesDB); err != nil {
		needKey = true
	}
	if _, err := os.Stat(groupDB); err != nil {
		needKey = true
	}

	var key string
	if needKey {
		if key, err = readKey(cfg); err != nil {
			return "", "", err
		}
	}

	cipher := decrypt.NewPageCipher()
	if _, err := decrypt.EnsureDecrypted(ctx, cipher, cfg.FilesDBPath(), filesDB, key, force); err != nil {
		return "", "", err
	}
	if _, err := decrypt.EnsureDecrypted(ctx, cipher, cfg.GroupDBPath(), groupDB, key, force); err != nil {
		return "", "", err
	}
	return filesDB, groupDB, nil
}

// buildCatalog runs the read-only half of the pipeline: decrypt artifacts,
// parse records, resolve paths. Built once and reused for the whole run.
func buildCatalog(ctx context.Context, cfg *config.Config) (*catalog.Index, error) {
	if cfg.MediaRoot == "" {
		return nil, fmt.Errorf("CHATSWEEP_MEDIA_ROOT is required")
	}
	if _, err := os.Stat(cfg.MediaRoot); err != nil {
		return nil, fmt.Errorf("media root: %w", err)
	}

	filesDB, groupDB, err := ensureArtifacts(ctx, cfg, false)
	if err != nil {
		return nil, err
	}

	records, err := store.Open(ctx, filesDB, groupDB)
	if err != nil {
		return nil, err
	}
	return catalog.Build(ctx, records, layout.NewMediaLayout(cfg.MediaRoot))
}

func runDecrypt(cmd *cobra.Command, args []string) error {
	ctx, cancel, cfg, err := setup()
	if err != nil {
		return err
	}
	defer cancel()

	filesDB, groupDB, err := ensureArtifacts(ctx, cfg, forceDecrypt)
	if err != nil {
		return err
	}
	fmt.Printf("Artifacts ready:\n  %s\n  %s\n", filesDB, groupDB)
	return nil
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx, cancel, cfg, err := setup()
	if err != nil {
		return err
	}
	defer cancel()

	idx, err := buildCatalog(ctx, cfg)
	if err != nil {
		return err
	}

	stats := idx.GroupStats()
	if len(stats) == 0 {
		fmt.Println("No media references found.")
		return nil
	}

	fmt.Printf("%-24s %-28s %10s %8s %8s\n", "GROUP", "NAME", "SIZE", "FILES", "MISSING")
	for _, st := range stats {
		fmt.Printf("%-24s %-28s %10s %8d %8d\n",
			st.GroupID, st.DisplayName, action.FormatBytes(st.ResidentBytes), st.FileCount, st.MissingCount)
	}
	return nil
}

func runClean(cmd *cobra.Command, args []string) error {
	ctx, cancel, cfg, err := setup()
	if err != nil {
		return err
	}
	defer cancel()

	groups, err := groupSelection()
	if err != nil {
		return err
	}
	rng, err := timeSelection()
	if err != nil {
		return err
	}

	idx, err := buildCatalog(ctx, cfg)
	if err != nil {
		return err
	}

	selection := filter.Select(idx, groups, rng)
	if len(selection) == 0 {
		fmt.Println("Nothing selected.")
		return nil
	}

	act := action.Delete()
	if moveTo != "" {
		act = action.MoveTo(moveTo)
		act.Flatten = flatten
	}

	var resident int64
	for _, e := range selection {
		resident += e.ResidentBytes
	}
	fmt.Printf("Selected %d entries (%s resident) for %s.\n",
		len(selection), action.FormatBytes(resident), act.Kind)

	if !dryRun && !assumeYes {
		if !confirm(fmt.Sprintf("Proceed with %s? This cannot be undone", act.Kind)) {
			fmt.Println("Aborted.")
			return nil
		}
	}

	w := workers
	if w <= 0 {
		w = cfg.Workers
	}
	report, err := action.NewEngine().Apply(ctx, selection, act, action.Options{DryRun: dryRun, Workers: w})
	if err != nil {
		return err
	}

	printReport(report)
	return nil
}

func groupSelection() (filter.GroupSet, error) {
	if allGroups && len(groupIDs) > 0 {
		return filter.GroupSet{}, fmt.Errorf("--all-groups and --groups are mutually exclusive")
	}
	if allGroups {
		return filter.AllGroups(), nil
	}
	if len(groupIDs) == 0 {
		return filter.GroupSet{}, fmt.Errorf("select groups with --groups or --all-groups")
	}
	return filter.Groups(groupIDs...), nil
}

func timeSelection() (filter.TimeRange, error) {
	if days > 0 && (fromDate != "" || toDate != "") {
		return filter.TimeRange{}, fmt.Errorf("--days and --from/--to are mutually exclusive")
	}
	if days > 0 {
		return filter.OlderThan(days, time.Now()), nil
	}

	rng := filter.AllTime()
	if fromDate != "" {
		from, err := time.Parse("2006-01-02", fromDate)
		if err != nil {
			return filter.TimeRange{}, fmt.Errorf("invalid --from date: %w", err)
		}
		rng.From = from
	}
	if toDate != "" {
		to, err := time.Parse("2006-01-02", toDate)
		if err != nil {
			return filter.TimeRange{}, fmt.Errorf("invalid --to date: %w", err)
		}
		// The whole end day is inside the range.
		rng.To = to.Add(24*time.Hour - time.Second)
	}
	return rng, nil
}

func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func printReport(report *action.Report) {
	verb := "Deleted"
	if report.Action == "move" {
		verb = "Archived"
	}
	if report.DryRun {
		fmt.Printf("Dry run %s: %d would succeed, %d failed, %d skipped (%s).\n",
			report.ID, report.WouldSucceed, report.Failed, report.Skipped, action.FormatBytes(report.Bytes))
	} else {
		fmt.Printf("%s %d entries, %d failed, %d skipped, %d already done (%s).\n",
			verb, report.Done, report.Failed, report.Skipped, report.AlreadyDone, action.FormatBytes(report.Bytes))
	}
	if report.Interrupted {
		fmt.Println("Batch interrupted; re-run the same selection to resume.")
	}
	for _, res := range report.Results {
		if res.Outcome == action.OutcomeFailed {
			fmt.Printf("  failed %d (%s): %s\n", res.ReferenceID, res.Path, res.Err)
		}
	}

	if report.Failed > 0 {
		slog.Warn("batch finished with failures", "report_id", report.ID, "failed", report.Failed)
	}
}
