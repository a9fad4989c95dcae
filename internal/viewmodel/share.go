package viewmodel

import (
	"strconv"
	"strings"

	"resumecvpro/internal/errors"
	"resumecvpro/internal/types"
)

// DefaultShareURL is used when no public URL was configured.
const DefaultShareURL = "https://resumecvpro.app"

var shareTemplates = map[types.LanguageCode]string{
	types.LangPortuguese: "Consegui um score de {score} para a vaga de {job} no ResumeCVPro! Otimize seu currículo também: {url}",
	types.LangEnglish:    "I scored {score} for the {job} position on ResumeCVPro! Optimize your resume too: {url}",
}

var shareFallbackJobs = map[types.LanguageCode]string{
	types.LangPortuguese: "Vaga Estratégica",
	types.LangEnglish:    "Strategic Position",
}

// ShareMessage renders the share text in lang. Languages without a template use pt-BR.
func ShareMessage(lang types.LanguageCode, score int, job, url string) string {
	if _, ok := shareTemplates[lang]; !ok {
		lang = types.LangPortuguese
	}
	job = strings.TrimSpace(job)
	if job == "" {
		job = shareFallbackJobs[lang]
	}
	if strings.TrimSpace(url) == "" {
		url = DefaultShareURL
	}
	return strings.NewReplacer(
		"{score}", strconv.Itoa(score),
		"{job}", job,
		"{url}", url,
	).Replace(shareTemplates[lang])
}

// DownloadBaseName is the file name of every exported résumé, without extension.
const DownloadBaseName = "ResumeCVPro_Otimizado"

// Artifact is a file ready to be handed to the user.
type Artifact struct {
	Filename    string
	ContentType string
	Body        []byte
}

// Download exports the optimized résumé. The format only picks the extension;
// the body is always the optimized text.
func Download(result types.AnalysisResult, format types.DownloadFormat) (Artifact, error) {
	if !format.Valid() {
		return Artifact{}, errors.NewValidationError(errors.ErrCodeInvalidFormat,
			"download format must be pdf or docx", nil).WithContext("format", string(format))
	}
	return Artifact{
		Filename:    DownloadBaseName + "." + string(format),
		ContentType: "text/plain; charset=utf-8",
		Body:        []byte(result.OptimizedContent),
	}, nil
}
