// Package seeder generates realistic document records for development and
// load testing.
package seeder

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/caseflow-systems/docingest/internal/classify"
	"github.com/caseflow-systems/docingest/internal/models"
)

var filenamePatterns = []string{
	"contrato_social_%s.pdf",
	"estatuto_%s.pdf",
	"comprovante_residencia_%s.pdf",
	"rg_%s.pdf",
	"cnh_%s.pdf",
	"declaracao_ir_%s.pdf",
	"certificado_registro_%s.pdf",
	"procuracao_%s.pdf",
	"balanco_patrimonial_%s.pdf",
	"faturamento_anual_%s.xlsx",
	"anexo_%s.pdf",
}

// Case is a generated case with its documents.
type Case struct {
	CaseID    string
	PipeID    string
	Company   string
	Documents []*models.DocumentRecord
}

// GenerateCase creates one case with a random set of documents.
func GenerateCase(storageURL, bucket string) Case {
	caseID := fmt.Sprintf("%d", gofakeit.Number(100000000, 999999999))
	pipeID := fmt.Sprintf("%d", gofakeit.Number(1000000, 9999999))
	company := gofakeit.Company()
	slug := strings.ToLower(strings.ReplaceAll(company, " ", "_"))

	count := 2 + rand.Intn(4)
	docs := make([]*models.DocumentRecord, 0, count)
	used := map[string]bool{}
	for len(docs) < count {
		pattern := filenamePatterns[rand.Intn(len(filenamePatterns))]
		name := fmt.Sprintf(pattern, slug)
		if used[name] {
			continue
		}
		used[name] = true

		docs = append(docs, &models.DocumentRecord{
			CaseID:  caseID,
			Name:    name,
			Tag:     classify.Tag(name),
			FileURL: fmt.Sprintf("%s/object/public/%s/%s/%s", storageURL, bucket, caseID, name),
			PipeID:  pipeID,
			Status:  "uploaded",
		})
	}

	return Case{
		CaseID:    caseID,
		PipeID:    pipeID,
		Company:   company,
		Documents: docs,
	}
}

// GenerateCases creates n cases.
func GenerateCases(n int, storageURL, bucket string) []Case {
	cases := make([]Case, 0, n)
	for i := 0; i < n; i++ {
		cases = append(cases, GenerateCase(storageURL, bucket))
	}
	return cases
}
