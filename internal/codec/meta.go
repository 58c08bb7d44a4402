package codec

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aidanlsb/pubs/internal/paper"
	"gopkg.in/yaml.v3"
)

// AddedLayout is the on-disk format of the "added" timestamp (UTC).
const AddedLayout = "2006-01-02 15:04:05"

const (
	keyDocFile = "docfile"
	keyTags    = "tags"
	keyAdded   = "added"
)

// DecodeMeta parses a metadata record. Unknown keys are kept in Extra.
func DecodeMeta(data []byte) (*paper.Metadata, error) {
	raw := map[string]any{}
	if len(bytes.TrimSpace(data)) > 0 {
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, &DecodeError{Kind: "yaml", Msg: "invalid metadata", Err: err}
		}
	}

	meta := paper.NewMetadata()
	for k, v := range raw {
		switch k {
		case keyDocFile:
			if v == nil {
				continue
			}
			s, ok := v.(string)
			if !ok {
				return nil, &DecodeError{Kind: "yaml", Msg: fmt.Sprintf("%s must be a string, got %T", k, v)}
			}
			meta.DocPath = s
		case keyTags:
			tags, err := decodeTags(v)
			if err != nil {
				return nil, err
			}
			meta.SetTags(tags)
		case keyAdded:
			added, err := decodeAdded(v)
			if err != nil {
				return nil, err
			}
			meta.Added = added
		default:
			if meta.Extra == nil {
				meta.Extra = make(map[string]any)
			}
			meta.Extra[k] = v
		}
	}
	return meta, nil
}

func decodeTags(v any) ([]string, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string:
		// Hand-edited files sometimes carry "a, b".
		return strings.Split(t, ","), nil
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				s = fmt.Sprint(item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, &DecodeError{Kind: "yaml", Msg: fmt.Sprintf("tags must be a list, got %T", v)}
	}
}

func decodeAdded(v any) (time.Time, error) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return t.UTC().Truncate(time.Second), nil
	case string:
		if t == "" {
			return time.Time{}, nil
		}
		for _, layout := range []string{AddedLayout, time.RFC3339, "2006-01-02"} {
			if ts, err := time.Parse(layout, t); err == nil {
				return ts.UTC().Truncate(time.Second), nil
			}
		}
		return time.Time{}, &DecodeError{Kind: "yaml", Msg: fmt.Sprintf("invalid added timestamp %q", t)}
	default:
		return time.Time{}, &DecodeError{Kind: "yaml", Msg: fmt.Sprintf("added must be a timestamp, got %T", v)}
	}
}

// EncodeMeta renders a metadata record with a stable key order: docfile,
// tags, added, then extra keys alphabetically.
func EncodeMeta(m *paper.Metadata) ([]byte, error) {
	root := &yaml.Node{Kind: yaml.MappingNode}

	if m.DocPath != "" {
		appendScalar(root, keyDocFile, m.DocPath)
	}

	tags := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
	for _, t := range m.Tags {
		tags.Content = append(tags.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: t})
	}
	root.Content = append(root.Content, keyNode(keyTags), tags)

	if !m.Added.IsZero() {
		appendScalar(root, keyAdded, m.Added.UTC().Format(AddedLayout))
	}

	extraKeys := make([]string, 0, len(m.Extra))
	for k := range m.Extra {
		extraKeys = append(extraKeys, k)
	}
	sort.Strings(extraKeys)
	for _, k := range extraKeys {
		val := &yaml.Node{}
		if err := val.Encode(m.Extra[k]); err != nil {
			return nil, fmt.Errorf("encode metadata key %q: %w", k, err)
		}
		root.Content = append(root.Content, keyNode(k), val)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	return buf.Bytes(), nil
}

func keyNode(k string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k}
}

func appendScalar(root *yaml.Node, k, v string) {
	root.Content = append(root.Content, keyNode(k), &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v})
}
