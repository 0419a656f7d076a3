package strategy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"
)

const (
	// DefaultTikaURL is where a local Tika server listens
	DefaultTikaURL = "http://localhost:9998"

	// NPagesKey is the metadata key Tika reports page counts under
	NPagesKey = "xmpTPg:NPages"

	maxTikaBody = 4 << 20
)

// TikaOptions configures the Tika strategy
type TikaOptions struct {
	URL               string
	Timeout           time.Duration
	RequestsPerSecond float64
	Client            *http.Client
}

// TikaStatusError is a non-200 answer from the Tika server
type TikaStatusError struct {
	Code int
	Body string
}

func (e *TikaStatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("tika returned %d %s", e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("tika returned %d %s: %s", e.Code, http.StatusText(e.Code), e.Body)
}

// TikaTransportError means the Tika server could not be reached
type TikaTransportError struct {
	Err error
}

func (e *TikaTransportError) Error() string {
	return fmt.Sprintf("tika unreachable: %v", e.Err)
}

func (e *TikaTransportError) Unwrap() error {
	return e.Err
}

type tikaDecodeError struct {
	err error
}

func (e *tikaDecodeError) Error() string {
	return fmt.Sprintf("unexpected tika metadata: %v", e.err)
}

func (e *tikaDecodeError) Unwrap() error {
	return e.err
}

func tikaStatus(match func(*TikaStatusError) bool) func(error) bool {
	return func(err error) bool {
		var se *TikaStatusError
		return errors.As(err, &se) && match(se)
	}
}

var tikaClassifier = Classifier{
	Rules: []Rule{
		{Match: as[*TikaTransportError](), Kind: KindUnavailable},
		{Match: tikaStatus(func(e *TikaStatusError) bool {
			return e.Code == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(e.Body), "encrypt")
		}), Kind: KindEncrypted},
		{Match: tikaStatus(func(e *TikaStatusError) bool {
			return e.Code == http.StatusUnprocessableEntity || e.Code == http.StatusInternalServerError
		}), Kind: KindMalformed},
		{Match: tikaStatus(func(e *TikaStatusError) bool {
			return e.Code == http.StatusUnsupportedMediaType
		}), Kind: KindUnsupported},
		{Match: as[*TikaStatusError](), Kind: KindUnavailable},
		{Match: as[*tikaDecodeError](), Kind: KindTypeMismatch},
	},
	Fallback: KindUnknown,
}

// TikaClient asks an Apache Tika server for document metadata
type TikaClient struct {
	endpoint string
	client   *http.Client
	limiter  *rate.Limiter
}

// NewTikaClient creates a client for the server at opts.URL
func NewTikaClient(opts TikaOptions) *TikaClient {
	endpoint := strings.TrimRight(opts.URL, "/")
	if endpoint == "" {
		endpoint = DefaultTikaURL
	}

	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}

	c := &TikaClient{endpoint: endpoint, client: client}
	if opts.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return c
}

// Wait blocks until the rate limiter admits another request
func (c *TikaClient) Wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// PageCount sends data to the server and reads the page count from the
// returned metadata. A document without a page count has zero pages.
func (c *TikaClient) PageCount(ctx context.Context, data []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.endpoint+"/meta", bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("failed to build tika request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/pdf")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, &TikaTransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTikaBody))
	if err != nil {
		return 0, &TikaTransportError{Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return 0, &TikaStatusError{Code: resp.StatusCode, Body: firstLine(body, 120)}
	}

	var meta map[string]json.RawMessage
	if err := json.Unmarshal(body, &meta); err != nil {
		return 0, &tikaDecodeError{err: err}
	}

	raw, ok := meta[NPagesKey]
	if !ok {
		return 0, nil
	}
	return parseNPages(raw)
}

// parseNPages accepts the string, number and single-element array shapes
// Tika uses for metadata values
func parseNPages(raw json.RawMessage) (int, error) {
	var value interface{}
	if err := json.Unmarshal(raw, &value); err != nil {
		return 0, &tikaDecodeError{err: err}
	}
	if list, ok := value.([]interface{}); ok && len(list) == 1 {
		value = list[0]
	}

	var n int
	switch v := value.(type) {
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, &ContractError{Strategy: "tika", Msg: fmt.Sprintf("%s is not an integer: %q", NPagesKey, v)}
		}
		n = parsed
	case float64:
		if v < math.MinInt || v >= math.MaxInt || v != math.Trunc(v) {
			return 0, &ContractError{Strategy: "tika", Msg: fmt.Sprintf("%s is not an integer: %v", NPagesKey, v)}
		}
		n = int(v)
	default:
		return 0, &ContractError{Strategy: "tika", Msg: fmt.Sprintf("%s has unexpected shape %s", NPagesKey, string(raw))}
	}
	return n, nil
}

func firstLine(body []byte, limit int) string {
	line := string(body)
	if i := strings.IndexAny(line, "\r\n"); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSpace(line)
	if len(line) > limit {
		cut := limit
		for cut > 0 && !utf8.RuneStart(line[cut]) {
			cut--
		}
		line = line[:cut]
	}
	return line
}

// Tika sends every file to an Apache Tika server. The file is read inside
// the timed region, like every backend that does its own I/O.
func Tika(opts TikaOptions) Strategy {
	const name = "tika"
	client := NewTikaClient(opts)

	return Strategy{
		Name:       name,
		Prepare:    client.Wait,
		Recognized: Kinds(KindMalformed, KindEncrypted, KindMissingKey, KindTypeMismatch),
		Extract: func(ctx context.Context, in Input) (int, error) {
			data, err := os.ReadFile(in.Path)
			if err != nil {
				return 0, err
			}
			n, err := client.PageCount(ctx, data)
			if err != nil {
				return 0, tikaClassifier.wrap(name, in.Path, err)
			}
			return n, nil
		},
	}
}
