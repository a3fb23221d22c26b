package models

import (
	"errors"
	"testing"

	"github.com/ikelabs/counts_backend/utils"
)

func TestCheckScopeFilters(t *testing.T) {
	flower := &Product{Name: "Blue Dream 3.5g", Category: "Flower", Subcategory: "Hybrid"}
	edible := &Product{Name: "Gummy 10pk", Category: "Edibles", Subcategory: "Gummies"}
	uncategorized := &Product{Name: "Mystery Item"}

	tests := []struct {
		name        string
		category    string
		subcategory string
		product     *Product
		wantErr     bool
	}{
		{"no filters", "", "", edible, false},
		{"category match", "Flower", "", flower, false},
		{"category match case-insensitive", "fLoWeR", "", flower, false},
		{"category mismatch", "Flower", "", edible, true},
		{"subcategory mismatch", "", "Hybrid", edible, true},
		{"both filters match", "Flower", "Hybrid", flower, false},
		{"uncategorized product passes through", "Flower", "Hybrid", uncategorized, false},
		{"filter with surrounding spaces", " Flower ", "", flower, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkScopeFilters(tt.category, tt.subcategory, tt.product)
			if tt.wantErr {
				if !utils.IsScopeMismatch(err) {
					t.Fatalf("expected scope mismatch, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestCheckScopeFiltersMismatchPayload(t *testing.T) {
	product := &Product{Name: "Gummy 10pk", Category: "Edibles"}

	err := checkScopeFilters("Flower", "", product)
	var appErr *utils.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected AppError, got %v", err)
	}
	if appErr.Expected != "Flower" {
		t.Errorf("expected scope %q, got %q", "Flower", appErr.Expected)
	}
	if appErr.Actual != "Edibles" {
		t.Errorf("actual category %q, got %q", "Edibles", appErr.Actual)
	}
	if appErr.Ident != product.Name {
		t.Errorf("ident %q, got %q", product.Name, appErr.Ident)
	}
}

func TestCheckPassScopeUsesPassFilters(t *testing.T) {
	pass := &CountPass{CategoryScope: "Flower", SubcategoryScope: "Hybrid"}

	if err := checkPassScope(pass, &Product{Name: "Blue Dream 3.5g", Category: "flower", Subcategory: "hybrid"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := checkPassScope(pass, &Product{Name: "Gummy 10pk", Category: "Edibles", Subcategory: "Gummies"}); !utils.IsScopeMismatch(err) {
		t.Fatalf("expected scope mismatch, got %v", err)
	}
}
