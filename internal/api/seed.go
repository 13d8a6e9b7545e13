package api

import (
	"time"

	"github.com/mentislab/mentis/internal/models"
)

const defaultConsent = `## TERMO DE CONSENTIMENTO LIVRE E ESCLARECIDO (TCLE)

### Título da Pesquisa
Explorando os Limites entre Inteligência Artificial e Cognição Humana

### 1. Natureza da Pesquisa
Você está sendo convidado(a) a participar de uma pesquisa científica que investiga processos cognitivos humanos em comparação com sistemas de inteligência artificial.

### 2. Procedimentos
Você realizará três tarefas online: Usos Alternativos (AUT), Interpretação Visual (FIQ) e Dilemas Éticos. Tempo estimado: 20-30 minutos.

### 3. Confidencialidade
**Todos os dados são anônimos.** Não coletamos nome, e-mail, CPF, telefone ou IP.

### 4. Consentimento
Ao marcar as opções abaixo, você declara que leu este termo, tem 18+ anos e concorda em participar.`

// SeedDefaults installs the starter experiment content (one consent document,
// two stimuli per task) when the store holds no configuration yet. Admins
// replace it through the admin API.
func SeedDefaults(store Store) error {
	consents, err := store.ListConsents()
	if err != nil {
		return err
	}
	aut, err := store.ListAUTStimuli()
	if err != nil {
		return err
	}
	fiq, err := store.ListFIQStimuli()
	if err != nil {
		return err
	}
	dilemmas, err := store.ListDilemmas()
	if err != nil {
		return err
	}
	if len(consents)+len(aut)+len(fiq)+len(dilemmas) > 0 {
		return nil
	}

	now := time.Now().UTC()
	if err := store.UpsertConsent(&models.ConsentConfig{
		ID: "tcle1", Content: defaultConsent, VersionTag: "TCLE_v1.0", Active: true,
		CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		return err
	}

	autSeed := []*models.AUTStimulus{
		{ID: "aut1", ObjectName: "Tijolo", InstructionText: "Liste todos os usos alternativos que você consegue imaginar para um tijolo comum.", SuggestedSeconds: 180, DisplayOrder: 1, VersionTag: "AUT_v1.0", Active: true},
		{ID: "aut2", ObjectName: "Clipe de Papel", InstructionText: "Liste todos os usos alternativos que você consegue imaginar para um clipe de papel.", SuggestedSeconds: 180, DisplayOrder: 2, VersionTag: "AUT_v1.0", Active: true},
	}
	for _, st := range autSeed {
		if err := store.UpsertAUTStimulus(st); err != nil {
			return err
		}
	}

	fiqSeed := []*models.FIQStimulus{
		{ID: "fiq1", Title: "Padrão Abstrato 1", ImageURL: "/uploads/fiq-abstract-1.png", QuestionText: "O que você vê nesta imagem? Descreva suas interpretações.", DisplayOrder: 1, VersionTag: "FIQ_v1.0", Active: true},
		{ID: "fiq2", Title: "Padrão Abstrato 2", ImageURL: "/uploads/fiq-abstract-2.png", QuestionText: "Que emoções esta imagem evoca em você?", DisplayOrder: 2, VersionTag: "FIQ_v1.0", Active: true},
	}
	for _, st := range fiqSeed {
		if err := store.UpsertFIQStimulus(st); err != nil {
			return err
		}
	}

	dilemmaSeed := []*models.EthicalDilemma{
		{ID: "dil1", DilemmaText: "Uma IA deveria ter permissão para tomar decisões médicas críticas sem supervisão humana, se estatisticamente ela tiver uma taxa de acerto maior que médicos humanos.", LikertScale: "1-5", DisplayOrder: 1, VersionTag: "DILEMMA_v1.0", Active: true},
		{ID: "dil2", DilemmaText: "Empresas deveriam ser obrigadas a revelar quando um conteúdo foi gerado por inteligência artificial.", LikertScale: "1-5", DisplayOrder: 2, VersionTag: "DILEMMA_v1.0", Active: true},
	}
	for _, d := range dilemmaSeed {
		if err := store.UpsertDilemma(d); err != nil {
			return err
		}
	}
	return nil
}
