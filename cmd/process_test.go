package cmd

import (
	"testing"

	"github.com/ginjaninja78/xtractpajak/internal/config"
	"github.com/ginjaninja78/xtractpajak/internal/types"
)

func TestParseDocTypes(t *testing.T) {
	docs, err := parseDocTypes([]string{"21", "unifikasi"})
	if err != nil {
		t.Fatalf("parseDocTypes: %v", err)
	}
	if len(docs) != 2 || docs[0] != types.Withholding21 || docs[1] != types.UnifiedWithholding {
		t.Errorf("docs = %v", docs)
	}

	if _, err := parseDocTypes([]string{"pph25"}); err == nil {
		t.Error("expected error for unknown type")
	}
}

func TestResolveJob(t *testing.T) {
	defer func() { taxpayerTIN, taxpayerName, taxMonth = "", "", 0 }()

	profiles := []*config.TaxpayerProfile{{
		Name:                 "Dinas Kesehatan",
		TIN:                  "0123456789012345",
		FileMatchingPatterns: []string{"dinkes_*"},
		DocumentTypes:        []string{"21"},
		Month:                3,
	}}

	job, err := resolveJob("/in/dinkes_maret.pdf", profiles, nil)
	if err != nil {
		t.Fatalf("resolveJob: %v", err)
	}
	if job.Name != "Dinas Kesehatan" || job.Month != 3 || len(job.DocTypes) != 1 {
		t.Errorf("job = %+v", job)
	}

	if _, err := resolveJob("/in/other.pdf", profiles, nil); err == nil {
		t.Error("expected error without a matching profile")
	}

	taxMonth = 5
	job, _ = resolveJob("/in/dinkes_mei.pdf", profiles, []types.DocumentType{types.UnifiedWithholding})
	if job.Month != 5 || job.DocTypes[0] != types.UnifiedWithholding {
		t.Errorf("flag overrides not applied: %+v", job)
	}

	taxpayerTIN = "5432109876543210"
	job, err = resolveJob("/in/other.pdf", nil, nil)
	if err != nil {
		t.Fatalf("resolveJob with --tin: %v", err)
	}
	if job.TIN != taxpayerTIN || job.Name != taxpayerTIN || len(job.DocTypes) != 2 {
		t.Errorf("job = %+v", job)
	}
}
