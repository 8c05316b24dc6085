package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/liamcoop/cartrules/evaluator"
	"github.com/liamcoop/cartrules/predicate"
	"github.com/liamcoop/cartrules/rules"
)

// errCheckFailed makes check exit non-zero once every predicate has been reported
var errCheckFailed = errors.New("one or more predicates failed to parse")

func newEvaluateCmd() *cobra.Command {
	var (
		cartPath       string
		categoriesPath string
		output         string
	)

	cmd := &cobra.Command{
		Use:   "evaluate [predicate]",
		Short: "Evaluate a predicate against a cart JSON file",
		Long: `Evaluates a cart predicate against a commercetools cart and prints the
qualification status, progress and message. Category names for messages come
from an optional YAML file mapping category ids to names.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cartPath == "" {
				return fmt.Errorf("--cart is required")
			}
			cart, err := loadCart(cartPath)
			if err != nil {
				return err
			}

			var categories map[string]string
			if categoriesPath != "" {
				if categories, err = loadCategories(categoriesPath); err != nil {
					return err
				}
			}

			result := evaluator.EvaluatePredicate(cmd.Context(), args[0], cart, &evaluator.Options{
				CategoryResolver: rules.CategoryResolver(rules.NewInMemoryCategoryStore(categories)),
			})

			switch output {
			case "json":
				return writeJSON(cmd.OutOrStdout(), result)
			case "text":
				writeResult(cmd.OutOrStdout(), result, 0)
				return nil
			default:
				return fmt.Errorf("unknown output format %q (use json or text)", output)
			}
		},
	}

	cmd.Flags().StringVar(&cartPath, "cart", "", "cart JSON file (- for stdin)")
	cmd.Flags().StringVar(&categoriesPath, "categories", "", "YAML file mapping category ids to names")
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text or json")
	return cmd
}

func newParseCmd() *cobra.Command {
	var stringify bool

	cmd := &cobra.Command{
		Use:   "parse [predicate]",
		Short: "Print the syntax tree of a predicate as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			node, err := predicate.Parse(args[0])
			if err != nil {
				return err
			}
			if stringify {
				fmt.Fprintln(cmd.OutOrStdout(), predicate.Stringify(node))
				return nil
			}
			return writeJSON(cmd.OutOrStdout(), node)
		},
	}

	cmd.Flags().BoolVar(&stringify, "stringify", false, "print the canonical predicate text instead of the tree")
	return cmd
}

func newCheckCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "check [predicate...]",
		Short: "Check that predicates parse",
		Long: `Parses each predicate given as an argument, or each non-empty line of
--file, and reports syntax errors. Exits non-zero when any predicate fails.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			predicates := args
			if file != "" {
				lines, err := readLines(file)
				if err != nil {
					return err
				}
				predicates = append(predicates, lines...)
			}
			if len(predicates) == 0 {
				return fmt.Errorf("no predicates given")
			}

			out := cmd.OutOrStdout()
			failed := 0
			for _, p := range predicates {
				_, err := predicate.Parse(p)
				switch {
				case err == nil:
					fmt.Fprintf(out, "OK    %s\n", p)
				case predicate.IsPartialPredicate(p):
					// a field and operator still waiting for a value
					failed++
					fmt.Fprintf(out, "FAIL  %s\n      incomplete: missing value\n", p)
				default:
					failed++
					fmt.Fprintf(out, "FAIL  %s\n      %v\n", p, err)
				}
			}

			fmt.Fprintf(out, "\n%d checked, %d failed\n", len(predicates), failed)
			if failed > 0 {
				return errCheckFailed
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "file with one predicate per line; # starts a comment")
	return cmd
}

func loadCart(path string) (*evaluator.Cart, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cart: %w", err)
	}

	cart, err := evaluator.ParseCart(data)
	if err != nil {
		return nil, fmt.Errorf("invalid cart %s: %w", path, err)
	}
	return cart, nil
}

// loadCategories reads a YAML mapping of category id to name
func loadCategories(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read categories: %w", err)
	}

	var categories map[string]string
	if err := yaml.Unmarshal(data, &categories); err != nil {
		return nil, fmt.Errorf("invalid categories file %s: %w", path, err)
	}
	return categories, nil
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return lines, scanner.Err()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeResult prints a result and its sub-conditions as an indented outline
func writeResult(w io.Writer, r *evaluator.Result, depth int) {
	indent := strings.Repeat("  ", depth)

	fmt.Fprintf(w, "%s%s [%s]", indent, r.QualificationStatus, evaluator.PredicateTypeDisplayName(r.Type))
	if r.QualificationMessage != "" {
		fmt.Fprintf(w, ": %s", r.QualificationMessage)
	}
	fmt.Fprintln(w)

	if r.CurrentAmount != nil && r.RequiredAmount != nil {
		fmt.Fprintf(w, "%s  amount %.2f of %.2f\n", indent, *r.CurrentAmount, *r.RequiredAmount)
	}
	if r.CurrentCount != nil && r.RequiredCount != nil {
		fmt.Fprintf(w, "%s  count %d of %d\n", indent, *r.CurrentCount, *r.RequiredCount)
	}

	for _, c := range r.Conditions {
		writeResult(w, c, depth+1)
	}
}
