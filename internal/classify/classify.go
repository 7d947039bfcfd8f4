// Package classify maps document filenames to semantic tags.
package classify

import (
	"strings"

	"github.com/caseflow-systems/docingest/internal/models"
)

type tagRule struct {
	tag      models.DocumentTag
	keywords []string
}

// Rules are evaluated in order; the first rule with a matching keyword wins.
var tagRules = []tagRule{
	{models.TagContratoSocial, []string{"contrato", "social", "estatuto"}},
	{models.TagComprovanteResidencia, []string{"comprovante", "residencia", "endereco"}},
	{models.TagDocumentoIdentidade, []string{"rg", "identidade", "cnh"}},
	{models.TagDeclaracaoImpostos, []string{"declaracao", "imposto", "ir"}},
	{models.TagCertificadoRegistro, []string{"certificado", "registro"}},
	{models.TagProcuracao, []string{"procuracao"}},
	{models.TagBalancoPatrimonial, []string{"balanco", "patrimonial", "demonstracao"}},
	{models.TagFaturamento, []string{"faturamento", "receita"}},
}

// Tag returns the document tag for a filename. Matching is case-insensitive
// substring search; filenames that match no rule get TagOutroDocumento.
func Tag(filename string) models.DocumentTag {
	lower := strings.ToLower(filename)
	for _, rule := range tagRules {
		for _, keyword := range rule.keywords {
			if strings.Contains(lower, keyword) {
				return rule.tag
			}
		}
	}
	return models.TagOutroDocumento
}
