package main

import (
	"context"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestContext_HasSpiffeId(t *testing.T) {
	ctx := context.Background()

	expected := "TEST"
	newCtx := injectSpiffeId(ctx, expected)
	actual := extractSpiffeIdFromTls(newCtx)

	if actual == nil {
		t.Fatalf("expected %s, got nil", expected)
	}

	if expected != *actual {
		t.Fatalf("expected %s, got %s", expected, *actual)
	}
}

func TestContext_NoPeerHasNoSpiffeId(t *testing.T) {
	if id := extractSpiffeIdFromTls(context.Background()); id != nil {
		t.Fatalf("expected nil, got %s", *id)
	}
}

func TestAuthorize(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		client  string
		want    codes.Code
	}{
		{name: "empty allowlist admits any client", client: "client1", want: codes.OK},
		{name: "listed client", allowed: []string{"client1", "client2"}, client: "client2", want: codes.OK},
		{name: "unlisted client", allowed: []string{"client1"}, client: "client3", want: codes.PermissionDenied},
		{name: "no identity", allowed: []string{"client1"}, want: codes.Unauthenticated},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			if tc.client != "" {
				ctx = injectSpiffeId(ctx, tc.client)
			}
			err := newAuthorizer(tc.allowed).authorize(ctx)
			if got := status.Code(err); got != tc.want {
				t.Fatalf("expected %v, got %v (%v)", tc.want, got, err)
			}
		})
	}
}
