package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/ironsheep/bubblescan/internal/imaging"
)

var (
	outDir      string
	workers     int
	debugDir    string
	keysFile    string
	arrangement string
	mcta        bool
	timestamp   bool
)

var processCmd = &cobra.Command{
	Use:   "process <scan or directory>...",
	Short: "Read a batch of scans and write CSV reports",
	Long: `Read every scan given, or every supported image in the given
directories, and write four reports to the output directory:

  results.csv   one row per exam: fields and answers
  keys.csv      one row per answer key: test form code and answers
  scores.csv    exams graded against the key for their test form code
  rejected.csv  scans whose corner marks could not be found

--keys adds answer keys from a CSV laid out like keys.csv. With
--arrangement and exactly one key, exams from every test form are put in
the key's question order and key.csv, rearranged_results.csv and
rearranged_scores.csv replace keys.csv and scores.csv. --mcta adds
mcta_<code>_key.csv and mcta_<code>_results.csv per test form code, and
--timestamp prefixes every file name with the batch start time.

Examples:
  bubblescan process scans/                 # all images in scans/
  bubblescan process -o out a.png b.png     # write reports to out/
  bubblescan process --variant 150q scans/  # 150-question sheets
  bubblescan process --keys keys.csv --arrangement forms.csv scans/`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("workers") {
			if err := m.Set("workers", workers); err != nil {
				return err
			}
		}
		overrides := []struct {
			key   string
			set   bool
			value interface{}
		}{
			{"debug_dir", debugDir != "", debugDir},
			{"keys_file", keysFile != "", keysFile},
			{"arrangement_file", arrangement != "", arrangement},
			{"mcta", cmd.Flags().Changed("mcta"), mcta},
			{"timestamp_files", cmd.Flags().Changed("timestamp"), timestamp},
		}
		for _, o := range overrides {
			if !o.set {
				continue
			}
			if err := m.Set(o.key, o.value); err != nil {
				return err
			}
		}

		reader, logger, err := newReader(m.Get())
		if err != nil {
			return err
		}

		paths, err := expandScans(args)
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			return fmt.Errorf("no supported images found in %v", args)
		}
		logger.Info("processing scans", "count", len(paths), "variant", reader.Options().Variant.Name)

		batch, err := reader.ProcessBatch(cmd.Context(), paths)
		if err != nil {
			return err
		}
		written, err := reader.WriteReports(outDir, batch)
		if err != nil {
			return err
		}
		for _, p := range written {
			fmt.Fprintln(cmd.OutOrStdout(), p)
		}
		return nil
	},
}

// expandScans replaces directories with the supported images they contain,
// sorted by name. Files named explicitly are kept even when their extension
// is not recognised, so the batch reports them as rejected.
func expandScans(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil || !info.IsDir() {
			paths = append(paths, arg)
			continue
		}

		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to read directory: %w", err)
		}
		var found []string
		for _, e := range entries {
			if !e.IsDir() && imaging.IsSupported(e.Name()) {
				found = append(found, filepath.Join(arg, e.Name()))
			}
		}
		sort.Strings(found)
		paths = append(paths, found...)
	}
	return paths, nil
}

func init() {
	processCmd.Flags().StringVarP(&outDir, "out", "o", ".", "directory for the CSV reports")
	processCmd.Flags().IntVarP(&workers, "workers", "w", 0, "sheets processed at once (overrides config)")
	processCmd.Flags().StringVar(&debugDir, "debug-dir", "", "write intermediate images per sheet to this directory")
	processCmd.Flags().StringVar(&keysFile, "keys", "", "CSV of answer keys graded with the scanned ones")
	processCmd.Flags().StringVar(&arrangement, "arrangement", "", "CSV mapping each test form code to the master question order")
	processCmd.Flags().BoolVar(&mcta, "mcta", false, "also write Multiple Choice Test Analysis files per test form code")
	processCmd.Flags().BoolVar(&timestamp, "timestamp", false, "prefix report file names with the batch start time")

	rootCmd.AddCommand(processCmd)
}
