// Package jsonld adapts the json-gold JSON-LD processor to the matcher.
//
// Documents and patterns are flattened by json-gold into expanded node
// objects, which are then converted into ldmatch nodes. Remote contexts are
// fetched through a retrying HTTP client.
package jsonld

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/piprate/json-gold/ld"

	"github.com/wbrown/janus-ldmatch/ldmatch"
)

// Options configures a Processor
type Options struct {
	// Base is the base IRI used to resolve relative identifiers
	Base string

	// HTTPRetries is the number of retries when fetching remote contexts
	HTTPRetries int

	// HTTPTimeout bounds each remote context request
	HTTPTimeout time.Duration

	// DocumentLoader overrides the HTTP backed loader, mainly for tests
	DocumentLoader ld.DocumentLoader
}

// DefaultOptions returns the default processor options
func DefaultOptions() Options {
	return Options{
		HTTPRetries: 3,
		HTTPTimeout: 10 * time.Second,
	}
}

// Processor flattens JSON-LD documents into graphs
type Processor struct {
	proc   *ld.JsonLdProcessor
	loader ld.DocumentLoader
	opts   Options
}

// NewProcessor creates a processor with opts
func NewProcessor(opts Options) *Processor {
	loader := opts.DocumentLoader
	if loader == nil {
		client := retryablehttp.NewClient()
		client.RetryMax = opts.HTTPRetries
		client.HTTPClient.Timeout = opts.HTTPTimeout
		client.Logger = nil
		loader = ld.NewDefaultDocumentLoader(client.StandardClient())
	}

	return &Processor{
		proc:   ld.NewJsonLdProcessor(),
		loader: loader,
		opts:   opts,
	}
}

// Flatten flattens document, expanding it with expandContext when non-nil,
// and converts the result into a graph.
//
// json-gold does not observe ctx; it is checked before and after the call so
// a cancelled run does not start or return stale work.
func (p *Processor) Flatten(ctx context.Context, document interface{}, expandContext interface{}) (ldmatch.MemoryGraph, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opts := ld.NewJsonLdOptions(p.opts.Base)
	opts.DocumentLoader = p.loader
	if expandContext != nil {
		opts.ExpandContext = expandContext
	}

	flattened, err := p.proc.Flatten(document, nil, opts)
	if err != nil {
		return nil, fmt.Errorf("flattening document: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	graph, err := FromFlattened(flattened)
	if err != nil {
		return nil, fmt.Errorf("converting flattened document: %w", err)
	}
	return graph, nil
}

// ParseDocument decodes a JSON document read from r
func ParseDocument(r io.Reader) (interface{}, error) {
	doc, err := ld.DocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing JSON-LD document: %w", err)
	}
	return doc, nil
}
