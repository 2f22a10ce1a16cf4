// Package referral turns uploaded referral letter PDFs into the
// structured form the orchestrator personalizes consultations with.
package referral

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/somnohealth/intakeflow/pkg/intake"
	"github.com/somnohealth/intakeflow/pkg/intake/inference"
)

// ErrNoText indicates the PDF parsed but contained no extractable text,
// e.g. a pure scan without an OCR layer.
var ErrNoText = errors.New("referral letter contains no extractable text")

// Extractor parses referral letter PDFs and extracts structured fields
// through the inference service.
type Extractor struct {
	svc inference.Service
}

// NewExtractor creates an Extractor backed by the given inference
// service.
func NewExtractor(svc inference.Service) *Extractor {
	return &Extractor{svc: svc}
}

// FromPDF extracts the referral letter from raw PDF bytes. It returns
// the structured letter and the full extracted text, which callers
// typically persist alongside it.
func (e *Extractor) FromPDF(ctx context.Context, data []byte) (*intake.ReferralLetter, string, error) {
	text, err := extractText(data)
	if err != nil {
		return nil, "", err
	}
	letter, err := e.FromText(ctx, text)
	if err != nil {
		return nil, "", err
	}
	return letter, text, nil
}

// FromText extracts structured referral fields from letter text.
func (e *Extractor) FromText(ctx context.Context, text string) (*intake.ReferralLetter, error) {
	info, err := e.svc.ExtractReferral(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("extract referral fields: %w", err)
	}
	return &intake.ReferralLetter{
		PatientName:    info.PatientName,
		DoctorName:     info.DoctorName,
		ReferralDate:   info.ReferralDate,
		ReferredTo:     info.ReferredTo,
		ReferralReason: info.ReferralReason,
	}, nil
}

// extractText pulls the plain text out of a PDF.
func extractText(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("parse pdf: %w", err)
	}

	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}

	var b strings.Builder
	if _, err := io.Copy(&b, plain); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}

	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}
