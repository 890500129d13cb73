/* Copyright 2026 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package request

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/Comcast/shoots/expr"
)

// target prefixes the base URL (unless told not to or the target is
// already absolute) and appends the params.
func (o *Orchestrator) target(u string, ignoreBase bool, params interface{}) (string, error) {
	if !ignoreBase && o.cfg.BaseURL != "" && !absolute(u) {
		u = strings.TrimRight(o.cfg.BaseURL, "/") + "/" + strings.TrimLeft(u, "/")
	}

	m, _ := params.(map[string]interface{})
	if len(m) == 0 {
		return u, nil
	}

	parsed, err := url.Parse(u)
	if err != nil {
		return "", err
	}
	q := parsed.Query()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		switch vv := m[k].(type) {
		case nil, []interface{}:
			q.Del(k)
			xs, _ := vv.([]interface{})
			for _, x := range xs {
				if !expr.IsNullish(x) {
					q.Add(k, expr.ToString(x))
				}
			}
		default:
			if expr.IsUndefined(vv) {
				continue
			}
			q.Set(k, expr.ToString(vv))
		}
	}
	parsed.RawQuery = q.Encode()
	return parsed.String(), nil
}

func absolute(u string) bool {
	if strings.HasPrefix(u, "//") {
		return true
	}
	parsed, err := url.Parse(u)
	return err == nil && parsed.Scheme != "" && parsed.Host != ""
}

func encodeBody(h http.Header, body interface{}) (io.Reader, error) {
	switch vv := body.(type) {
	case nil:
		return nil, nil
	case string:
		return strings.NewReader(vv), nil
	case []byte:
		return bytes.NewReader(vv), nil
	case map[string]interface{}:
		if strings.HasPrefix(h.Get("Content-Type"), "application/x-www-form-urlencoded") {
			form := make(url.Values, len(vv))
			for k, v := range vv {
				form.Set(k, expr.ToString(v))
			}
			return strings.NewReader(form.Encode()), nil
		}
	}
	js, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(js), nil
}

// do issues the request and decodes the response.  The returned
// Result carries an error for transport failures, non-2xx statuses,
// and business status failures.
func (o *Orchestrator) do(ctx context.Context, out *Outgoing) *Result {
	fail := func(status int, err error) *Result {
		return &Result{
			Status: status,
			Err:    &TransportError{Method: out.Method, URL: out.URL, Status: status, Err: err},
		}
	}

	body, err := encodeBody(out.Header, out.Body)
	if err != nil {
		return fail(0, err)
	}

	if o.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, out.Method, out.URL, body)
	if err != nil {
		return fail(0, err)
	}
	req.Header = out.Header.Clone()
	if req.Header == nil {
		req.Header = make(http.Header)
	}

	o.log.Debug("request", "method", out.Method, "url", out.URL)

	resp, err := o.client.Do(req)
	if err != nil {
		return fail(0, err)
	}
	defer resp.Body.Close()

	bs, err := io.ReadAll(resp.Body)
	if err != nil {
		return fail(resp.StatusCode, err)
	}

	r := &Result{
		Status: resp.StatusCode,
		Header: resp.Header,
	}
	ok := 200 <= resp.StatusCode && resp.StatusCode < 300

	switch out.ResponseType {
	case Text:
		r.Response = string(bs)
	case Blob, ArrayBuffer:
		r.Response = bs
	default:
		r.Response = decode(bs)
	}

	if !ok {
		r.Err = &TransportError{Method: out.Method, URL: out.URL, Status: resp.StatusCode}
		return r
	}

	switch out.ResponseType {
	case Text, Blob, ArrayBuffer:
		// Opaque kinds skip the envelope and extraction.
		r.Data = r.Response
		return r
	}

	data, err := o.unwrap(r.Response, resp.StatusCode)
	if err != nil {
		r.Err = err
		return r
	}
	r.Data = data
	return r
}

// decode parses JSON, falling back to the raw text.  An empty body is
// nil.
func decode(bs []byte) interface{} {
	if len(bytes.TrimSpace(bs)) == 0 {
		return nil
	}
	var x interface{}
	if err := json.Unmarshal(bs, &x); err != nil {
		return string(bs)
	}
	return x
}

// unwrap checks the business envelope (if configured and present in
// the body) and extracts the payload.
//
// An object that merely happens to have a field named like the
// configured code field is treated as an envelope.
func (o *Orchestrator) unwrap(body interface{}, status int) (interface{}, error) {
	m, isMap := body.(map[string]interface{})
	if env := o.cfg.ResponseEnvelope; isMap && env != nil && env.CodeField != "" {
		if code, have := m[env.CodeField]; have {
			if !successful(code, env.SuccessCodes()) {
				e := &BusinessStatusError{Code: code, Status: status}
				if env.MsgField != "" {
					if msg, have := m[env.MsgField]; have && !expr.IsNullish(msg) {
						e.Message = expr.ToString(msg)
					}
				}
				return nil, e
			}
			if env.DataField == "" {
				return body, nil
			}
			return m[env.DataField], nil
		}
	}
	if p := o.cfg.ResponseDataPath; p != "" {
		x, _ := expr.GetPath(body, p)
		return expr.Defined(x), nil
	}
	return body, nil
}

func successful(code interface{}, codes []interface{}) bool {
	if len(codes) == 0 {
		return true
	}
	for _, c := range codes {
		if expr.LooseEquals(code, c) {
			return true
		}
	}
	return false
}
