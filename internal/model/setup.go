package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"
)

// OutputDirKey is the reserved top-level key carrying the output directory.
const OutputDirKey = "output_dir"

// ErrMalformedSetup reports a setup record that cannot be turned into an output model.
var ErrMalformedSetup = errors.New("malformed setup")

// Setup is the canonical setup record exchanged with the PDF engine and persisted to disk:
//
//	{"output_dir": "...", "<document>": {"<position>": {"<source page>": "<source path>"}}}
//
// Documents and entries keep the order they were decoded or built in. Keys and descriptors are
// kept raw; validation happens when the record is loaded into an output model.
type Setup struct {
	OutputDir string
	Documents []SetupDocument
}

type SetupDocument struct {
	Name    string
	Entries []SetupEntry
}

type SetupEntry struct {
	// Key is the position key as written ("1".."N" in a well-formed record).
	Key string
	// Pages maps source page number to source document path; exactly one pair is expected.
	Pages map[string]string
}

// NewSetupDocument builds a document whose position keys are "1".."N" in slice order.
func NewSetupDocument(name string, pages []PageSource) SetupDocument {
	doc := SetupDocument{Name: name, Entries: make([]SetupEntry, 0, len(pages))}
	for i, p := range pages {
		doc.Entries = append(doc.Entries, SetupEntry{
			Key:   strconv.Itoa(i + 1),
			Pages: map[string]string{strconv.Itoa(p.Page): p.Document},
		})
	}
	return doc
}

// Document returns the first document with the given name.
func (s *Setup) Document(name string) (*SetupDocument, bool) {
	for i := range s.Documents {
		if s.Documents[i].Name == name {
			return &s.Documents[i], true
		}
	}
	return nil, false
}

// Put replaces the first document named doc.Name, or appends doc when there is none.
func (s *Setup) Put(doc SetupDocument) (replaced bool) {
	if cur, ok := s.Document(doc.Name); ok {
		*cur = doc
		return true
	}
	s.Documents = append(s.Documents, doc)
	return false
}

// PageCount counts all pages referenced by the record.
func (s Setup) PageCount() int {
	n := 0
	for _, d := range s.Documents {
		n += len(d.Entries)
	}
	return n
}

func (s Setup) Clone() Setup {
	out := Setup{OutputDir: s.OutputDir, Documents: make([]SetupDocument, 0, len(s.Documents))}
	for _, d := range s.Documents {
		nd := SetupDocument{Name: d.Name, Entries: make([]SetupEntry, 0, len(d.Entries))}
		for _, e := range d.Entries {
			var pages map[string]string
			if e.Pages != nil {
				pages = make(map[string]string, len(e.Pages))
				for k, v := range e.Pages {
					pages[k] = v
				}
			}
			nd.Entries = append(nd.Entries, SetupEntry{Key: e.Key, Pages: pages})
		}
		out.Documents = append(out.Documents, nd)
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MarshalJSON writes an ordered object: output_dir first, then documents in model order.
func (s Setup) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	writeKey := func(k string) error {
		b, err := json.Marshal(k)
		if err != nil {
			return err
		}
		buf.Write(b)
		buf.WriteByte(':')
		return nil
	}
	if err := writeKey(OutputDirKey); err != nil {
		return nil, err
	}
	b, err := json.Marshal(s.OutputDir)
	if err != nil {
		return nil, err
	}
	buf.Write(b)

	for _, d := range s.Documents {
		buf.WriteByte(',')
		if err := writeKey(d.Name); err != nil {
			return nil, err
		}
		buf.WriteByte('{')
		for i, e := range d.Entries {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeKey(e.Key); err != nil {
				return nil, err
			}
			buf.WriteByte('{')
			for j, k := range sortedKeys(e.Pages) {
				if j > 0 {
					buf.WriteByte(',')
				}
				if err := writeKey(k); err != nil {
					return nil, err
				}
				v, err := json.Marshal(e.Pages[k])
				if err != nil {
					return nil, err
				}
				buf.Write(v)
			}
			buf.WriteByte('}')
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes with a token stream so document and entry order (and duplicate keys)
// survive decoding.
func (s *Setup) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	out := Setup{}

	if err := expectDelim(dec, '{'); err != nil {
		return err
	}
	for dec.More() {
		key, err := readKey(dec)
		if err != nil {
			return err
		}
		if key == OutputDirKey {
			var dir string
			if err := dec.Decode(&dir); err != nil {
				return fmt.Errorf("%w: %s must be a string", ErrMalformedSetup, OutputDirKey)
			}
			out.OutputDir = dir
			continue
		}
		doc, err := decodeDocument(dec, key)
		if err != nil {
			return err
		}
		out.Documents = append(out.Documents, doc)
	}
	if err := expectDelim(dec, '}'); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return fmt.Errorf("%w: trailing data after setup object", ErrMalformedSetup)
	}
	*s = out
	return nil
}

func decodeDocument(dec *json.Decoder, name string) (SetupDocument, error) {
	doc := SetupDocument{Name: name, Entries: []SetupEntry{}}
	if err := expectDelim(dec, '{'); err != nil {
		return SetupDocument{}, fmt.Errorf("document %q: %w", name, err)
	}
	for dec.More() {
		key, err := readKey(dec)
		if err != nil {
			return SetupDocument{}, err
		}
		pages, err := decodeDescriptor(dec)
		if err != nil {
			return SetupDocument{}, fmt.Errorf("%w: document %q position %q: %v", ErrMalformedSetup, name, key, err)
		}
		doc.Entries = append(doc.Entries, SetupEntry{Key: key, Pages: pages})
	}
	if err := expectDelim(dec, '}'); err != nil {
		return SetupDocument{}, err
	}
	return doc, nil
}

// decodeDescriptor reads one {"<source page>": "<path>"} object pair by pair; a repeated source
// page is an error rather than a silent overwrite.
func decodeDescriptor(dec *json.Decoder) (map[string]string, error) {
	if err := expectDelim(dec, '{'); err != nil {
		return nil, errDescriptorShape
	}
	pages := map[string]string{}
	for dec.More() {
		k, err := readKey(dec)
		if err != nil {
			return nil, errDescriptorShape
		}
		var path string
		if err := dec.Decode(&path); err != nil {
			return nil, errDescriptorShape
		}
		if _, dup := pages[k]; dup {
			return nil, fmt.Errorf("duplicate source page %q in page descriptor", k)
		}
		pages[k] = path
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, errDescriptorShape
	}
	return pages, nil
}

var errDescriptorShape = errors.New("page descriptor must map a page number to a path")

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedSetup, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("%w: expected %q, got %v", ErrMalformedSetup, string(want), tok)
	}
	return nil
}

func readKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedSetup, err)
	}
	k, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("%w: expected object key, got %v", ErrMalformedSetup, tok)
	}
	return k, nil
}

func strNode(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v, Style: yaml.DoubleQuotedStyle}
}

// MarshalYAML produces the same ordered shape as MarshalJSON.
func (s Setup) MarshalYAML() (any, error) {
	root := &yaml.Node{Kind: yaml.MappingNode}
	root.Content = append(root.Content, strNode(OutputDirKey), strNode(s.OutputDir))
	for _, d := range s.Documents {
		docNode := &yaml.Node{Kind: yaml.MappingNode}
		for _, e := range d.Entries {
			pageNode := &yaml.Node{Kind: yaml.MappingNode, Style: yaml.FlowStyle}
			for _, k := range sortedKeys(e.Pages) {
				pageNode.Content = append(pageNode.Content, strNode(k), strNode(e.Pages[k]))
			}
			docNode.Content = append(docNode.Content, strNode(e.Key), pageNode)
		}
		root.Content = append(root.Content, strNode(d.Name), docNode)
	}
	return root, nil
}

func (s *Setup) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.DocumentNode && len(value.Content) == 1 {
		value = value.Content[0]
	}
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("%w: setup must be a mapping (line %d)", ErrMalformedSetup, value.Line)
	}
	out := Setup{}
	for i := 0; i+1 < len(value.Content); i += 2 {
		key, val := value.Content[i], value.Content[i+1]
		if key.Value == OutputDirKey {
			if val.Kind != yaml.ScalarNode {
				return fmt.Errorf("%w: %s must be a string (line %d)", ErrMalformedSetup, OutputDirKey, val.Line)
			}
			out.OutputDir = val.Value
			continue
		}
		if val.Kind != yaml.MappingNode {
			return fmt.Errorf("%w: document %q must be a mapping (line %d)", ErrMalformedSetup, key.Value, val.Line)
		}
		doc := SetupDocument{Name: key.Value, Entries: []SetupEntry{}}
		for j := 0; j+1 < len(val.Content); j += 2 {
			pk, pv := val.Content[j], val.Content[j+1]
			pages, err := descriptorFromNode(pv)
			if err != nil {
				return fmt.Errorf("%w: document %q position %q: %v (line %d)", ErrMalformedSetup, key.Value, pk.Value, err, pv.Line)
			}
			doc.Entries = append(doc.Entries, SetupEntry{Key: pk.Value, Pages: pages})
		}
		out.Documents = append(out.Documents, doc)
	}
	*s = out
	return nil
}

func descriptorFromNode(n *yaml.Node) (map[string]string, error) {
	if n.Kind != yaml.MappingNode {
		return nil, errDescriptorShape
	}
	pages := map[string]string{}
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		if k.Kind != yaml.ScalarNode || v.Kind != yaml.ScalarNode {
			return nil, errDescriptorShape
		}
		if _, dup := pages[k.Value]; dup {
			return nil, fmt.Errorf("duplicate source page %q in page descriptor", k.Value)
		}
		pages[k.Value] = v.Value
	}
	return pages, nil
}
