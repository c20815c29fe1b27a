package mongoutil

import (
	"context"
	"testing"

	"go.mongodb.org/mongo-driver/mongo"
)

func TestValidateAndSetDefaults(t *testing.T) {
	c := &Config{Address: []string{"db1:27017", "db2:27017"}, Database: "hoodhelp", Username: "u", Password: "p"}
	if err := c.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	want := "mongodb://u:p@db1:27017,db2:27017/hoodhelp?authSource=hoodhelp&maxPoolSize=100"
	if c.Uri != want {
		t.Fatalf("uri = %q, want %q", c.Uri, want)
	}
	if c.MaxRetry != defaultMaxRetry {
		t.Fatalf("MaxRetry = %d", c.MaxRetry)
	}

	anon := &Config{Address: []string{"db1:27017"}, Database: "d", AuthSource: "admin", MaxPoolSize: 5}
	_ = anon.ValidateAndSetDefaults()
	if anon.Uri != "mongodb://db1:27017/d?authSource=admin&maxPoolSize=5" {
		t.Fatalf("uri = %q", anon.Uri)
	}
}

func TestValidateRejectsIncomplete(t *testing.T) {
	for _, c := range []*Config{
		{Database: "d"},
		{Uri: "mongodb://localhost"},
	} {
		if err := c.ValidateAndSetDefaults(); err == nil {
			t.Errorf("expected error for %+v", c)
		}
	}
}

func TestShouldRetry(t *testing.T) {
	ctx := context.Background()
	if shouldRetry(ctx, mongo.CommandError{Code: 18}) {
		t.Error("auth failure must not be retried")
	}
	if !shouldRetry(ctx, mongo.CommandError{Code: 91}) {
		t.Error("shutdown in progress should be retried")
	}
	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if shouldRetry(cancelled, mongo.CommandError{Code: 91}) {
		t.Error("cancelled context must stop retries")
	}
}
