package classify

import (
	"testing"

	"github.com/caseflow-systems/docingest/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestTag(t *testing.T) {
	tests := []struct {
		filename string
		expected models.DocumentTag
	}{
		{"contrato_social_v2.pdf", models.TagContratoSocial},
		{"Estatuto-2024.pdf", models.TagContratoSocial},
		{"comprovante_endereco.jpg", models.TagComprovanteResidencia},
		{"RG_frente.png", models.TagDocumentoIdentidade},
		{"cnh-digital.pdf", models.TagDocumentoIdentidade},
		{"declaracao_ir_2023.pdf", models.TagDeclaracaoImpostos},
		{"certificado-registro.pdf", models.TagCertificadoRegistro},
		{"procuracao.docx", models.TagProcuracao},
		{"balanco_patrimonial.xlsx", models.TagBalancoPatrimonial},
		{"faturamento-anual.pdf", models.TagFaturamento},
		{"foto_fachada.jpg", models.TagOutroDocumento},
		{"", models.TagOutroDocumento},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			assert.Equal(t, tt.expected, Tag(tt.filename))
		})
	}
}

func TestTag_CaseInsensitive(t *testing.T) {
	assert.Equal(t, Tag("CONTRATO.PDF"), Tag("contrato.pdf"))
	assert.Equal(t, models.TagProcuracao, Tag("PROCURACAO.PDF"))
}

func TestTag_FirstMatchWins(t *testing.T) {
	// "contrato" and "registro" both appear; the contract rule is ordered
	// first and must win.
	assert.Equal(t, models.TagContratoSocial, Tag("contrato_registro.pdf"))
}

func TestTag_Deterministic(t *testing.T) {
	for i := 0; i < 10; i++ {
		assert.Equal(t, models.TagBalancoPatrimonial, Tag("demonstracao_anual.xlsx"))
	}
}
