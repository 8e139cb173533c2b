package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wbrown/janus-ldmatch/ldmatch"
	"github.com/wbrown/janus-ldmatch/ldmatch/algebra"
	"github.com/wbrown/janus-ldmatch/ldmatch/driver"
	"github.com/wbrown/janus-ldmatch/ldmatch/jsonld"
	"github.com/wbrown/janus-ldmatch/ldmatch/output"
)

const (
	inputFlag       = "input"
	graphFlag       = "graph"
	patternsFlag    = "patterns"
	contextFlag     = "context"
	formatFlag      = "format"
	faultPolicyFlag = "fault-policy"
	bufferJoinsFlag = "buffer-joins"

	formatTable = "table"
	formatJSON  = "json"
)

// matchFile is one entry of a matches file
type matchFile struct {
	Name    string      `json:"name"`
	Pattern interface{} `json:"pattern"`
	Vars    []string    `json:"vars"`
}

// result gathers the bindings delivered to one registration
type result struct {
	name string
	vars []string
	rows []ldmatch.Binding
}

func newMatchCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Match patterns against a JSON-LD document or a stored graph",
		Long: `The match command runs every pattern of a matches file, in file order, and
prints the bindings of each one.

A matches file is a JSON array of objects with a "name", a JSON-LD "pattern"
and the declared "vars" of the pattern.`,
		Example: `  ldmatch match --input people.jsonld --patterns friends.json
  ldmatch match --graph people --patterns friends.json --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runMatch(cmd)
		},
	}

	flags := cmd.Flags()

	flags.String(inputFlag, "", "JSON-LD document to match against")
	flags.String(graphFlag, "", "stored graph to match against")
	flags.String(patternsFlag, "", "(required) the matches file")
	flags.String(contextFlag, "", "JSON-LD context applied to every pattern")
	cmd.MarkFlagsMutuallyExclusive(inputFlag, graphFlag)
	cmd.MarkFlagsOneRequired(inputFlag, graphFlag)
	_ = cmd.MarkFlagRequired(patternsFlag)

	flags.String(formatFlag, formatTable, "output format (table or json)")
	mustBindPFlag(a.v, formatFlag, flags.Lookup(formatFlag))

	flags.String(faultPolicyFlag, driver.FaultCollect.String(), "which faults to report (collect, last or first)")
	mustBindPFlag(a.v, faultPolicyFlag, flags.Lookup(faultPolicyFlag))

	flags.Bool(bufferJoinsFlag, algebra.DefaultOptions().BufferJoinOperands, "replay join operands instead of recomputing them")
	mustBindPFlag(a.v, bufferJoinsFlag, flags.Lookup(bufferJoinsFlag))

	return cmd
}

func (a *app) runMatch(cmd *cobra.Command) error {
	flags := cmd.Flags()
	input, _ := flags.GetString(inputFlag)
	graphName, _ := flags.GetString(graphFlag)
	patternsPath, _ := flags.GetString(patternsFlag)
	contextPath, _ := flags.GetString(contextFlag)

	format := a.v.GetString(formatFlag)
	if format != formatTable && format != formatJSON {
		return fmt.Errorf("unknown output format: %s", format)
	}

	policy, err := driver.ParseFaultPolicy(a.v.GetString(faultPolicyFlag))
	if err != nil {
		return err
	}

	entries, err := readMatches(patternsPath)
	if err != nil {
		return err
	}

	var patternContext interface{}
	if contextPath != "" {
		if patternContext, err = readDocument(contextPath); err != nil {
			return err
		}
	}

	opts := driver.DefaultOptions()
	opts.FaultPolicy = policy
	opts.Algebra.BufferJoinOperands = a.v.GetBool(bufferJoinsFlag)
	opts.Handler = a.handler()
	d := driver.New(a.processor(), opts)

	results := make([]*result, len(entries))
	matches := make([]driver.Match, len(entries))
	for i, entry := range entries {
		r := &result{name: entry.Name, vars: entry.Vars}
		results[i] = r
		matches[i] = driver.Match{
			Name:    entry.Name,
			Pattern: entry.Pattern,
			Vars:    entry.Vars,
			Action: func(b ldmatch.Binding) {
				r.rows = append(r.rows, b)
			},
		}
	}

	ctx := cmd.Context()
	var runErr error
	if input != "" {
		doc, err := readDocument(input)
		if err != nil {
			return err
		}
		runErr = d.MatchAll(ctx, doc, matches, patternContext)
	} else {
		store, err := a.openStore(true)
		if err != nil {
			return err
		}
		defer store.Close()
		runErr = d.MatchGraph(ctx, store.Graph(graphName), matches, patternContext)
	}

	if runErr != nil {
		a.logger.Warn("match run failed", zap.Error(runErr))
	}

	// Bindings delivered before a fault are still reported
	if err := writeResults(cmd.OutOrStdout(), format, results); err != nil {
		return err
	}
	return runErr
}

func writeResults(w io.Writer, format string, results []*result) error {
	if format == formatJSON {
		for _, r := range results {
			if err := output.WriteJSONLines(w, r.name, r.rows); err != nil {
				return err
			}
		}
		return nil
	}

	tf := output.NewTableFormatter()
	for i, r := range results {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "### %s\n\n%s\n", r.name, tf.FormatBindings(r.vars, r.rows))
	}
	return nil
}

// readMatches reads a matches file
func readMatches(path string) ([]matchFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading matches: %w", err)
	}

	var entries []matchFile
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing matches %s: %w", path, err)
	}
	for i, entry := range entries {
		if entry.Name == "" {
			return nil, fmt.Errorf("match %d in %s has no name", i, path)
		}
		if entry.Pattern == nil {
			return nil, fmt.Errorf("match %s in %s has no pattern", entry.Name, path)
		}
	}
	return entries, nil
}

func readDocument(path string) (interface{}, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}
	defer f.Close()

	doc, err := jsonld.ParseDocument(f)
	if err != nil {
		return nil, fmt.Errorf("parsing document %s: %w", path, err)
	}
	return doc, nil
}
