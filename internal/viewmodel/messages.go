package viewmodel

import "resumecvpro/internal/types"

var motivational = map[types.LanguageCode][]string{
	types.LangPortuguese: {
		"Sua próxima grande oportunidade está sendo preparada...",
		"O mercado precisa de talentos como você. Estamos polindo seu brilho!",
		"Pequenos ajustes hoje, grandes conquistas amanhã. Quase lá!",
		"Você é capaz de alcançar seus objetivos. Estamos focando no seu sucesso!",
		"Transformando sua experiência em um convite para entrevista...",
		"Acredite no seu potencial. Nossa IA está destacando o melhor de você!",
	},
	types.LangEnglish: {
		"Your next big opportunity is being prepared...",
		"The market needs talent like yours. We are polishing your shine!",
		"Small tweaks today, big wins tomorrow. Almost there!",
		"You can reach your goals. We are focusing on your success!",
		"Turning your experience into an interview invitation...",
		"Believe in your potential. Our AI is highlighting the best of you!",
	},
}

// MotivationalMessages returns the loading messages for lang, falling back to pt-BR.
func MotivationalMessages(lang types.LanguageCode) []string {
	msgs, ok := motivational[lang]
	if !ok {
		msgs = motivational[types.LangPortuguese]
	}
	out := make([]string, len(msgs))
	copy(out, msgs)
	return out
}
