package main

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/wizenheimer/banter"
)

var rankLimit int

var rankCmd = &cobra.Command{
	Use:   "rank <message>",
	Short: "Show how each knowledge entry scores against a message",
	Long: `Prints the TF-IDF relevance and the best pattern similarity of every
knowledge entry for the message, followed by the candidate the engine would
pick. Nothing is written to the stored history.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRank,
}

func init() {
	rankCmd.Flags().IntVarP(&rankLimit, "limit", "n", 10, "rows to show (0 = all)")
	rootCmd.AddCommand(rankCmd)
}

type rankRow struct {
	entry      *banter.KnowledgeEntry
	relevance  float64
	similarity float64
}

func runRank(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")

	sess, err := openSession(context.Background(), cfg, false)
	if err != nil {
		return err
	}
	defer sess.Close()

	engineCfg, err := cfg.EngineConfig()
	if err != nil {
		return err
	}
	analyzer := banter.NewAnalyzer(engineCfg.Analyzer)
	similarity := banter.NewSimilarity(analyzer, engineCfg.Similarity)

	entries := sess.engine.KnowledgeBase().AllEntries()
	docs := make([]banter.Document, len(entries))
	for i, entry := range entries {
		docs[i] = banter.Document{Text: strings.Join(entry.Patterns, " "), Entry: entry}
	}

	rows := make([]rankRow, len(entries))
	for i, entry := range entries {
		rows[i].entry = entry
	}
	for _, ranked := range banter.RankByRelevance(analyzer, query, docs) {
		rows[ranked.Index].relevance = ranked.Score
	}
	for i := range rows {
		for _, pattern := range rows[i].entry.Patterns {
			rows[i].similarity = max(rows[i].similarity, similarity.Score(query, pattern))
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].similarity*rows[i].entry.Weight > rows[j].similarity*rows[j].entry.Weight
	})
	if rankLimit > 0 && len(rows) > rankLimit {
		rows = rows[:rankLimit]
	}

	out := cmd.OutOrStdout()
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ENTRY\tTF-IDF\tSIMILARITY\tWEIGHT\tPATTERNS")
	for _, row := range rows {
		fmt.Fprintf(w, "%s\t%.3f\t%.3f\t%.2f\t%s\n",
			row.entry.ID, row.relevance, row.similarity, row.entry.Weight, strings.Join(row.entry.Patterns, " | "))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	match := sess.engine.Match(query)
	if match.Entry == nil {
		fmt.Fprintln(out, "\nno candidate")
		return nil
	}
	fmt.Fprintf(out, "\ncandidate: %s (%s, %.3f, threshold %.2f)\n",
		match.Entry.ID, match.Method, match.Score, engineCfg.Selector.MinSimilarity)
	return nil
}
