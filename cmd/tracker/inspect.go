package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/velmie/tracker"
)

func newInspectCmd(a *app) *cobra.Command {
	var showEvents bool

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print the persisted queue as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := openBackend(ctx, a.cfg.Storage)
			if err != nil {
				return fmt.Errorf("open %s storage: %w", a.cfg.Storage.Backend, err)
			}
			defer func() { _ = store.Close() }()

			doc := mapping(
				"key", scalar(a.cfg.StorageKey),
				"backend", scalar(a.cfg.Storage.Backend),
			)

			raw, err := store.Load(ctx, a.cfg.StorageKey)
			switch {
			case errors.Is(err, tracker.ErrNotFound):
				appendPairs(doc, "present", scalar(false))
			case err != nil:
				return fmt.Errorf("load snapshot: %w", err)
			default:
				snapshot, decodeErr := tracker.DecodeSnapshot(raw)
				if decodeErr != nil {
					appendPairs(doc, "present", scalar(true), "bytes", scalar(len(raw)), "error", scalar(decodeErr.Error()))
					if err := writeYAML(cmd, doc); err != nil {
						return err
					}
					return decodeErr
				}
				appendPairs(doc, "present", scalar(true), "bytes", scalar(len(raw)))
				for _, kind := range tracker.Kinds {
					appendPairs(doc, kind.String(), scalar(len(snapshot.Events(kind))))
				}
				if showEvents {
					events := mapping()
					for _, kind := range tracker.Kinds {
						list := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
						for _, event := range snapshot.Events(kind) {
							list.Content = append(list.Content, valueNode(event.Fields))
						}
						appendPairs(events, kind.String(), list)
					}
					appendPairs(doc, "events", events)
				}
			}

			return writeYAML(cmd, doc)
		},
	}

	cmd.Flags().BoolVar(&showEvents, "events", false, "include the queued events")

	return cmd
}

func writeYAML(cmd *cobra.Command, doc *yaml.Node) error {
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

func mapping(pairs ...any) *yaml.Node {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	appendPairs(node, pairs...)
	return node
}

// appendPairs adds key/value pairs given as alternating string keys and *yaml.Node values.
func appendPairs(node *yaml.Node, pairs ...any) {
	for i := 0; i+1 < len(pairs); i += 2 {
		node.Content = append(node.Content, scalar(pairs[i].(string)), pairs[i+1].(*yaml.Node))
	}
}

func scalar(v any) *yaml.Node {
	switch val := v.(type) {
	case string:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: val}
	case bool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(val)}
	case int:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(val)}
	case int64:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(val, 10)}
	case json.Number:
		if _, err := val.Int64(); err == nil {
			return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: val.String()}
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: val.String()}
	case nil:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: fmt.Sprint(val)}
	}
}

// valueNode converts decoded event values keeping object field order.
func valueNode(v any) *yaml.Node {
	switch val := v.(type) {
	case tracker.Object:
		node := mapping()
		for _, field := range val {
			appendPairs(node, field.Name, valueNode(field.Value))
		}
		return node
	case []any:
		node := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range val {
			node.Content = append(node.Content, valueNode(item))
		}
		return node
	default:
		return scalar(val)
	}
}
