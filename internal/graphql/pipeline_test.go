package graphql

import (
	"context"
	"errors"
	"testing"
)

type recordingTransport struct {
	calls int
	last  *Request
	resp  *Response
	err   error
}

func (t *recordingTransport) Do(_ context.Context, req *Request) (*Response, error) {
	t.calls++
	t.last = req
	if t.err != nil {
		return nil, t.err
	}
	if t.resp != nil {
		return t.resp, nil
	}
	return &Response{Data: []byte(`{}`)}, nil
}

func tokenSource(tok string) TokenSource {
	return TokenSourceFunc(func(context.Context) (string, bool) {
		return tok, tok != ""
	})
}

func TestBearerAuth(t *testing.T) {
	cases := []struct {
		name  string
		token string
		want  string
	}{
		{"token present", "abc123", "Bearer abc123"},
		{"token absent", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tr := &recordingTransport{}
			p := NewPipeline(tr, BearerAuth(tokenSource(tc.token)))
			if _, err := p.Execute(context.Background(), NewRequest("Q", "{ hello }", nil)); err != nil {
				t.Fatalf("Execute: %v", err)
			}
			vals, present := tr.last.Header["Authorization"]
			if !present || len(vals) != 1 {
				t.Fatalf("Authorization header must always be set, got %v", tr.last.Header)
			}
			if vals[0] != tc.want {
				t.Fatalf("Authorization = %q, want %q", vals[0], tc.want)
			}
		})
	}
}

func TestPipeline_StagesRunInOrder(t *testing.T) {
	var order []string
	stage := func(name string) Transform {
		return func(_ context.Context, req *Request) error {
			order = append(order, name)
			req.Header.Set("X-Last", name)
			return nil
		}
	}

	tr := &recordingTransport{}
	p := NewPipeline(tr, stage("first"), stage("second"), stage("third"))
	if p.Len() != 3 {
		t.Fatalf("Len() = %d", p.Len())
	}
	if _, err := p.Execute(context.Background(), &Request{Query: "{ hello }"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(order) != 3 || order[0] != "first" || order[2] != "third" {
		t.Fatalf("stages ran as %v", order)
	}
	if got := tr.last.Header.Get("X-Last"); got != "third" {
		t.Fatalf("transport saw X-Last=%q, want the last stage's value", got)
	}
}

func TestPipeline_StageErrorStopsDispatch(t *testing.T) {
	boom := errors.New("boom")
	tr := &recordingTransport{}
	ran := false
	p := NewPipeline(tr,
		func(context.Context, *Request) error { return boom },
		func(context.Context, *Request) error { ran = true; return nil },
	)
	_, err := p.Execute(context.Background(), NewRequest("Q", "{ hello }", nil))
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if ran || tr.calls != 0 {
		t.Fatal("later stages and transport must not run after a stage error")
	}
}

func TestRequestIDAndStaticHeaders(t *testing.T) {
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "req_42")

	tr := &recordingTransport{}
	p := NewPipeline(tr,
		StaticHeaders(map[string]string{"X-Client": "walletlog"}),
		RequestID(func(ctx context.Context) string { s, _ := ctx.Value(key{}).(string); return s }),
	)
	if _, err := p.Execute(ctx, NewRequest("Q", "{ hello }", nil)); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if tr.last.Header.Get("X-Client") != "walletlog" || tr.last.Header.Get("X-Request-ID") != "req_42" {
		t.Fatalf("unexpected headers: %v", tr.last.Header)
	}

	// No id in context: header stays unset.
	if _, err := p.Execute(context.Background(), NewRequest("Q", "{ hello }", nil)); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if _, ok := tr.last.Header["X-Request-Id"]; ok {
		t.Fatal("X-Request-ID should be absent without an id")
	}
}
