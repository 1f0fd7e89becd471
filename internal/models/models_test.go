package models

import (
	"reflect"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
)

func TestMergeTopics(t *testing.T) {
	got := MergeTopics([]string{"article", "en"}, []string{"en", "article", ""})
	want := []string{"article", "en"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("MergeTopics = %v, want %v", got, want)
	}

	got = MergeTopics([]string{"article", "en"}, []string{"ja"})
	want = []string{"article", "en", "ja"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("MergeTopics = %v, want %v", got, want)
	}
}

func TestAdminAccountCheckPassword(t *testing.T) {
	hash, err := HashPassword("hunter22")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	a := AdminAccount{Username: "admin", PasswordHash: hash}
	if !a.CheckPassword("hunter22") {
		t.Fatalf("expected password to match")
	}
	if a.CheckPassword("wrong") {
		t.Fatalf("expected wrong password to fail")
	}
	if (AdminAccount{}).CheckPassword("") {
		t.Fatalf("expected empty hash to reject")
	}
}

func TestVerifyTOTPCode(t *testing.T) {
	key, err := totp.Generate(totp.GenerateOpts{Issuer: "portfolio", AccountName: "admin"})
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	code, err := totp.GenerateCode(key.Secret(), time.Now())
	if err != nil {
		t.Fatalf("generate code: %v", err)
	}
	if !VerifyTOTPCode(key.Secret(), code) {
		t.Fatalf("expected code to verify")
	}
	if VerifyTOTPCode(key.Secret(), "000000x") {
		t.Fatalf("expected malformed code to fail")
	}
}

func TestMetaPostComplete(t *testing.T) {
	m := MetaPost{URL: "https://example.com/a", Title: "A", Description: "d"}
	if !m.Complete() {
		t.Fatalf("expected complete")
	}
	m.Description = ""
	if m.Complete() {
		t.Fatalf("expected incomplete without description")
	}
}
