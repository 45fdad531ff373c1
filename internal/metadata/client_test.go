package metadata

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestByTokenID_DerivesTLDAndLength(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/domains/987" {
			t.Errorf("path=%s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"tokenId":"987","domainName":"Crypto.XYZ","ownerAddress":"0xabc"}`)
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL)
	md, err := c.ByTokenID(context.Background(), "987")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if md.DomainName != "crypto.xyz" {
		t.Fatalf("name=%s want lowercased", md.DomainName)
	}
	if md.TLD != "xyz" {
		t.Fatalf("tld=%s want xyz", md.TLD)
	}
	if md.CharLength != 6 {
		t.Fatalf("charLength=%d want 6", md.CharLength)
	}
}

func TestByTokenID_ExplicitFieldsWin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"tokenId":"1","domainName":"abc.io","tld":"io","characterLength":3}`)
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL)
	md, err := c.ByTokenID(context.Background(), "1")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if md.TLD != "io" || md.CharLength != 3 {
		t.Fatalf("md=%+v", md)
	}
}

func TestByTokenID_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL)
	if _, err := c.ByTokenID(context.Background(), "404"); err == nil {
		t.Fatalf("want error")
	}
}
