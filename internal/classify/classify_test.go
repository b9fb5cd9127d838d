package classify_test

import (
	"testing"

	"github.com/linmei/gloss/internal/classify"
)

func TestNewClassifier(t *testing.T) {
	classifier := classify.NewClassifier()
	if classifier == nil {
		t.Fatal("NewClassifier() returned nil")
	}
}

func TestClassifierIsBoilerplate(t *testing.T) {
	classifier := classify.NewClassifier()

	tests := []struct {
		name     string
		text     string
		index    int
		total    int
		expected bool
	}{
		{
			name:     "empty document",
			text:     "",
			index:    0,
			total:    1,
			expected: true,
		},
		{
			name:     "whitespace only document",
			text:     "   \n\t  ",
			index:    0,
			total:    1,
			expected: true,
		},
		{
			name:     "copyright page at the front",
			text:     "Copyright 2026. All rights reserved. No part of this book may be reproduced without permission of the publisher. ISBN 479-04550.",
			index:    1,
			total:    12,
			expected: true,
		},
		{
			name:     "table of contents",
			text:     "Contents. Chapter One. Chapter Two. Chapter Three. Appendix. Index. Notes.",
			index:    0,
			total:    12,
			expected: true,
		},
		{
			name:     "gutenberg back matter",
			text:     "This ebook is for the use of anyone anywhere. Project Gutenberg website: https gutenberg org. Produced by the Foundation.",
			index:    11,
			total:    12,
			expected: true,
		},
		{
			name:     "chapter prose in the middle",
			text:     "The ship heeled in the squall and the crew scrambled aloft to reef the topsails before the worst of the weather found them.",
			index:    6,
			total:    12,
			expected: false,
		},
		{
			name:     "prose that mentions a chapter",
			text:     "She closed the book at the end of the chapter and watched the rain trace slow lines down the glass, thinking of home and the long road back.",
			index:    5,
			total:    12,
			expected: false,
		},
		{
			name:     "single document book",
			text:     "A complete short story about a lighthouse keeper and the storms of a long winter.",
			index:    0,
			total:    1,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifier.IsBoilerplate(tt.text, tt.index, tt.total)
			if got != tt.expected {
				t.Errorf("IsBoilerplate() = %v, want %v\nText: %q\nPosition: %d/%d",
					got, tt.expected, tt.text, tt.index+1, tt.total)
			}
		})
	}
}

func TestClassifierPositionSensitivity(t *testing.T) {
	classifier := classify.NewClassifier()

	// dense enough in publishing vocabulary to trip the edge threshold
	// but not the mid-spine one
	text := "The author set these notes down in the last edition, long before the war came to the valley and changed every life in it."

	if !classifier.IsBoilerplate(text, 0, 12) {
		t.Error("expected first document to be flagged")
	}
	if !classifier.IsBoilerplate(text, 11, 12) {
		t.Error("expected last document to be flagged")
	}
	if classifier.IsBoilerplate(text, 6, 12) {
		t.Error("expected mid-spine document to pass")
	}
}

func TestClassifierOutOfRange(t *testing.T) {
	classifier := classify.NewClassifier()

	tests := []struct {
		name  string
		index int
		total int
	}{
		{name: "zero total", index: 0, total: 0},
		{name: "negative index", index: -1, total: 5},
		{name: "index beyond total", index: 10, total: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if classifier.IsBoilerplate("copyright reserved publisher", tt.index, tt.total) {
				t.Errorf("out-of-range position should never classify as boilerplate")
			}
		})
	}
}
