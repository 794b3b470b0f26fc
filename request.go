package opcall

import (
	"context"
	"maps"
	"net/url"
	"reflect"
	"slices"
	"strings"

	"github.com/gorilla/schema"
)

var queryEncoder = schema.NewEncoder()

// Request is a fully resolved, ready-to-send request. It is rebuilt from
// scratch on every attempt so that time-sensitive header values (signatures,
// dates) are never reused stale.
type Request struct {
	Method string
	URL    *url.URL
	Header map[string]string
	Body   []byte
}

// Clone returns a deep copy. Interceptors that replace the request should
// clone rather than mutate a request they want to keep.
func (r *Request) Clone() *Request {
	u := *r.URL
	return &Request{
		Method: r.Method,
		URL:    &u,
		Header: maps.Clone(r.Header),
		Body:   slices.Clone(r.Body),
	}
}

// EncodeQuery encodes a tagged struct into query values using the package
// query encoder. Operations built WithQueryFrom use it to derive explicit
// query parameters from the input itself.
func EncodeQuery(v any) (url.Values, error) {
	vals := url.Values{}
	if err := queryEncoder.Encode(v, vals); err != nil {
		return nil, err
	}
	return vals, nil
}

// buildRequest turns the operation's request template plus one input into a
// concrete request for the chosen protocol. The step order is fixed:
// path expansion, path normalization, host resolution, header merge, query
// merge, body serialization, construction, request interceptors.
func (op *Operation[I, O]) buildRequest(ctx context.Context, input I, proto Protocol) (*Request, error) {
	src, _ := any(input).(LabelSource)

	expanded, err := op.pattern.Expand(src)
	if err != nil {
		return nil, err
	}

	base := op.endpoint.URL
	path := joinPaths(base.Path, expanded)
	if op.pattern.TrailingSlash() && !strings.HasSuffix(path, "/") {
		path += "/"
	}

	host := base.Host
	if op.hostPrefix != "" && !op.endpoint.HostImmutable {
		prefix, err := ExpandHostPrefix(op.hostPrefix, src)
		if err != nil {
			return nil, err
		}
		host = prefix + host
	}

	// Header merge is right-biased: protocol defaults, then template headers.
	header := map[string]string{}
	maps.Copy(header, proto.Headers())
	maps.Copy(header, op.headers)

	// Query merge, same override order: template literals, explicit
	// parameters, then whatever the base URI already carried.
	query := url.Values{}
	mergeValues(query, op.pattern.Query())
	mergeValues(query, op.query)
	if op.queryFromInput {
		encoded, err := EncodeQuery(input)
		if err != nil {
			return nil, err
		}
		mergeValues(query, encoded)
	}
	mergeValues(query, base.Query())

	body, err := proto.Serialize(input, reflect.TypeFor[I]())
	if err != nil {
		return nil, err
	}

	u := &url.URL{
		Scheme:   base.Scheme,
		Host:     host,
		RawQuery: query.Encode(),
	}
	// The expanded path is already escaped. Record it as the raw path so
	// URL.String() does not escape it a second time.
	if unescaped, err := url.PathUnescape(path); err == nil {
		u.Path = unescaped
		u.RawPath = path
	} else {
		u.Path = path
	}
	req := &Request{
		Method: op.method,
		URL:    u,
		Header: header,
		Body:   body,
	}

	return applyRequestInterceptors(ctx, req, proto.RequestInterceptors())
}

// joinPaths concatenates a base path and an expanded template path with a
// single separator, stripping the slashes that would otherwise double up.
func joinPaths(base, path string) string {
	base = strings.TrimSuffix(base, "/")
	path = strings.TrimPrefix(path, "/")
	joined := base + "/" + path
	if !strings.HasPrefix(joined, "/") {
		joined = "/" + joined
	}
	return joined
}

// mergeValues overlays src onto dst, replacing colliding keys wholesale.
func mergeValues(dst, src url.Values) {
	for k, vs := range src {
		dst[k] = slices.Clone(vs)
	}
}
