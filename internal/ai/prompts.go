package ai

import (
	"strings"
	"text/template"

	"resumecvpro/internal/types"
)

// OriginalLanguage is used in the prompt when no target language was chosen.
const OriginalLanguage = "the original language of the CV"

// DefaultSystemPrompt is sent as system instruction when system prompts are enabled
const DefaultSystemPrompt = `Você é um especialista sênior em Recrutamento e Seleção e sistemas de ATS (Applicant Tracking Systems).
Você nunca inventa experiências, formações ou habilidades que não estejam no currículo original.`

// DefaultUserPrompt is the analysis prompt template. Fields: Resume, Job, Language.
const DefaultUserPrompt = `Sua tarefa é analisar o currículo abaixo de forma CRÍTICA e RIGOROSA em relação à vaga pretendida.

Currículo:
{{.Resume}}

Descrição da Vaga:
{{.Job}}

DIRETRIZES DE ANÁLISE E PONTUAÇÃO (TOTAL 100 PONTOS):
Você DEVE dividir a análise em EXATAMENTE 4 categorias, cada uma valendo no máximo 25 pontos.
A nota final (score) DEVE ser a soma exata desses 4 valores.

1. Palavras-chave (Máx 25 pts):
   - Avalie a densidade e relevância dos termos técnicos cruciais da vaga no currículo.
   - 0 pts se não houver termos; 25 pts se o currículo estiver perfeitamente otimizado.

2. Experiência (Máx 25 pts):
   - Avalie se as experiências são relevantes e descritas com resultados quantificáveis.
   - 0 pts se irrelevante; 25 pts se houver conquistas de alto impacto alinhadas à senioridade.

3. Educação (Máx 25 pts):
   - Avalie o alinhamento acadêmico e certificações técnicas exigidas ou desejáveis.
   - 0 pts se não atender requisitos básicos; 25 pts se superar expectativas.

4. Formatação (Máx 25 pts):
   - Avalie a legibilidade para robôs ATS (sem gráficos/tabelas complexas) e a clareza para humanos.
   - 0 pts se for confuso ou ilegível para ATS; 25 pts se for um padrão ouro de estrutura.

IMPORTANTE:
- O score final DEVE ser a soma de (Palavras-chave + Experiência + Educação + Formatação).
- Escreva TODO o conteúdo gerado (justificativas, sugestões, currículo otimizado e LinkedIn) em: {{.Language}}.
- O currículo otimizado deve ser profissional, usando verbos de ação e técnica STAR.

RETORNE EM JSON seguindo estritamente o esquema fornecido.`

// BreakdownCategories are the four scoring categories, in prompt order.
var BreakdownCategories = []string{"Palavras-chave", "Experiência", "Educação", "Formatação"}

type promptData struct {
	Resume   string
	Job      string
	Language string
}

// TargetLanguageName resolves the language the oracle should write in.
func TargetLanguageName(code types.LanguageCode) string {
	if name := code.DisplayName(); name != "" {
		return name
	}
	return OriginalLanguage
}

// jobSection combines the description with the fetched posting or the bare URL.
func jobSection(description, url, posting string) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(description))
	if url == "" {
		return b.String()
	}
	if b.Len() > 0 {
		b.WriteString("\n\n")
	}
	b.WriteString("Link da vaga: ")
	b.WriteString(url)
	if posting = strings.TrimSpace(posting); posting != "" {
		b.WriteString("\n\nConteúdo da página da vaga:\n")
		b.WriteString(posting)
	}
	return b.String()
}

// renderPrompt executes a user prompt template. Custom templates that fail to
// parse are reported so the caller can fall back to the default.
func renderPrompt(tmpl string, data promptData) (string, error) {
	t, err := template.New("analyze").Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

// resolvePrompt picks the configured prompt, falling back to the built-in default.
func resolvePrompt(fromConfig, fromDefault string) string {
	if strings.TrimSpace(fromConfig) != "" {
		return fromConfig
	}
	return fromDefault
}
