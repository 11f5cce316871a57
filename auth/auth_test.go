package auth

import "testing"

func TestMintAndVerifyRoundTrip(t *testing.T) {
	store := NewStore(map[string]string{"client-1": "secret-key"}, []byte("signing-secret"), false)

	token, _, err := store.MintToken("client-1", "secret-key")
	if err != nil {
		t.Fatalf("MintToken: %v", err)
	}
	if err := store.VerifyForEndpoint("Bearer " + token); err != nil {
		t.Fatalf("VerifyForEndpoint: %v", err)
	}
}

func TestMintRejectsBadCredentials(t *testing.T) {
	store := NewStore(map[string]string{"client-1": "secret-key"}, []byte("signing-secret"), false)
	if _, _, err := store.MintToken("client-1", "wrong-key"); err == nil {
		t.Fatal("expected auth error for wrong api key")
	}
	if _, _, err := store.MintToken("unknown-client", "secret-key"); err == nil {
		t.Fatal("expected auth error for unknown client")
	}
}

func TestMintRejectsEmptyClientID(t *testing.T) {
	store := NewStore(nil, []byte("signing-secret"), true)
	if _, _, err := store.MintToken("", "anything"); err == nil {
		t.Fatal("expected auth error for empty client_id")
	}
}

func TestVerifyRejectsMalformedHeader(t *testing.T) {
	store := NewStore(map[string]string{"client-1": "secret-key"}, []byte("signing-secret"), false)
	if err := store.VerifyForEndpoint("not-a-bearer-token"); err == nil {
		t.Fatal("expected auth error for malformed header")
	}
	if err := store.VerifyForEndpoint(""); err == nil {
		t.Fatal("expected auth error for empty header")
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	store := NewStore(map[string]string{"client-1": "secret-key"}, []byte("signing-secret"), false)
	token, _, err := store.MintToken("client-1", "secret-key")
	if err != nil {
		t.Fatalf("MintToken: %v", err)
	}
	other := NewStore(nil, []byte("different-secret"), false)
	if err := other.VerifyForEndpoint("Bearer " + token); err == nil {
		t.Fatal("expected auth error for token signed with a different secret")
	}
}

func TestSkipChecksAcceptsAnything(t *testing.T) {
	store := NewStore(nil, []byte("signing-secret"), true)
	if _, _, err := store.MintToken("anyone", "anything"); err != nil {
		t.Fatalf("MintToken with skip checks: %v", err)
	}
	if err := store.VerifyForEndpoint(""); err != nil {
		t.Fatalf("VerifyForEndpoint with skip checks: %v", err)
	}
}
