package pipeline

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"creativeagent/internal/domain"
	"creativeagent/internal/infra"
	"creativeagent/internal/providers/model"
)

func cryptoPlan(languages ...string) domain.GenerationPlan {
	if len(languages) == 0 {
		languages = []string{"en"}
	}
	return domain.GenerationPlan{
		ProductScope:    "crypto",
		Languages:       languages,
		PrimaryLanguage: languages[0],
		RulesetID:       "crypto",
		Weights:         domain.DefaultScoreWeights(),
	}
}

func compliantOption(languages ...string) *domain.CreativeOption {
	if len(languages) == 0 {
		languages = []string{"en"}
	}
	copies := make(map[string]domain.CopyVariant, len(languages))
	for _, lang := range languages {
		copies[lang] = domain.CopyVariant{
			PrimaryText: "Explore crypto markets with learning tools. Capital at risk.",
			Headline:    "Start learning crypto",
			CTA:         "Learn more",
		}
	}
	return &domain.CreativeOption{
		OptionID:    "opt-1",
		ConceptName: "Learning first",
		Copy:        copies,
	}
}

func TestCheckRulesPasses(t *testing.T) {
	res := CheckRules(compliantOption(), cryptoPlan())
	if res.Status != domain.CompliancePass {
		t.Fatalf("Status = %q, want pass (flags: %v)", res.Status, res.Flags)
	}
	if len(res.RequiredDisclaimers) != 1 || res.RequiredDisclaimers[0] != "Capital at risk" {
		t.Fatalf("RequiredDisclaimers = %v", res.RequiredDisclaimers)
	}
}

func TestCheckRulesProhibitedPhraseFails(t *testing.T) {
	opt := compliantOption()
	cv := opt.Copy["en"]
	cv.PrimaryText = "Guaranteed returns every month. Capital at risk."
	opt.Copy["en"] = cv

	res := CheckRules(opt, cryptoPlan())
	if res.Status != domain.ComplianceFail {
		t.Fatalf("Status = %q, want fail", res.Status)
	}
	found := false
	for _, f := range res.Flags {
		if f.Source == domain.FlagSourceRule && strings.Contains(f.Reason, "guaranteed returns") {
			found = true
			if f.SuggestedEdit == "" {
				t.Fatalf("prohibited-phrase flag should carry a suggested edit")
			}
		}
	}
	if !found {
		t.Fatalf("no rule flag naming the phrase: %v", res.Flags)
	}
}

func TestCheckRulesMissingDisclaimerPerLanguage(t *testing.T) {
	opt := compliantOption("en", "de")
	opt.Copy["de"] = domain.CopyVariant{
		PrimaryText: "Entdecke Krypto-Maerkte mit Lerntools.",
		Headline:    "Krypto verstehen",
		CTA:         "Mehr erfahren",
	}

	res := CheckRules(opt, cryptoPlan("en", "de"))
	if res.Status != domain.ComplianceFail {
		t.Fatalf("Status = %q, want fail", res.Status)
	}
	found := false
	for _, f := range res.Flags {
		if f.Source == domain.FlagSourceRule &&
			strings.Contains(f.Reason, "Capital at risk") &&
			strings.Contains(f.Reason, "de") {
			found = true
		}
	}
	if !found {
		t.Fatalf("no rule flag naming the missing disclaimer for de: %v", res.Flags)
	}
}

func TestCheckRulesHonorsMustNotSay(t *testing.T) {
	opt := compliantOption()
	cv := opt.Copy["en"]
	cv.Headline = "Moon-bound gains await. Capital at risk."
	opt.Copy["en"] = cv
	plan := cryptoPlan()
	plan.MustNotSay = []string{"moon-bound"}

	res := CheckRules(opt, plan)
	if res.Status != domain.ComplianceFail {
		t.Fatalf("Status = %q, want fail", res.Status)
	}
}

func TestCheckRulesDeterministic(t *testing.T) {
	opt := compliantOption()
	cv := opt.Copy["en"]
	cv.PrimaryText = "Risk-free trading, get rich fast."
	opt.Copy["en"] = cv
	plan := cryptoPlan()

	first := CheckRules(opt, plan)
	for i := 0; i < 10; i++ {
		if got := CheckRules(opt, plan); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d differs: %#v vs %#v", i, got, first)
		}
	}
}

func TestCheckModelLayerRaisesToWarningOnly(t *testing.T) {
	tr := &scriptedComplianceTransport{reply: `{"flags":[{"reason":"implied urgency","suggested_edit":"soften the deadline"}],"severity":"low","notes":""}`}
	checker := newCheckerWith(t, tr)

	opt := compliantOption()
	res, note := checker.Check(context.Background(), opt, cryptoPlan())
	if note != "" {
		t.Fatalf("unexpected note %q", note)
	}
	if res.Status != domain.ComplianceWarning {
		t.Fatalf("Status = %q, want warning", res.Status)
	}
	hasModelFlag := false
	for _, f := range res.Flags {
		if f.Source == domain.FlagSourceModel {
			hasModelFlag = true
		}
	}
	if !hasModelFlag {
		t.Fatalf("expected a model-sourced flag: %v", res.Flags)
	}
}

func TestCheckModelLayerNeverDowngradesFail(t *testing.T) {
	tr := &scriptedComplianceTransport{reply: `{"flags":[],"severity":"low","notes":"looks fine"}`}
	checker := newCheckerWith(t, tr)

	opt := compliantOption()
	cv := opt.Copy["en"]
	cv.PrimaryText = "Guaranteed returns. Capital at risk."
	opt.Copy["en"] = cv

	res, _ := checker.Check(context.Background(), opt, cryptoPlan())
	if res.Status != domain.ComplianceFail {
		t.Fatalf("Status = %q, want fail preserved", res.Status)
	}
}

func TestCheckModelFailureKeepsRuleResultWithNote(t *testing.T) {
	tr := &scriptedComplianceTransport{err: errors.New("backend down")}
	checker := newCheckerWith(t, tr)

	res, note := checker.Check(context.Background(), compliantOption(), cryptoPlan())
	if res.Status != domain.CompliancePass {
		t.Fatalf("Status = %q, want pass from rule layer", res.Status)
	}
	if note == "" {
		t.Fatalf("expected a degradation note")
	}
}

type scriptedComplianceTransport struct {
	reply string
	err   error
}

func (s *scriptedComplianceTransport) Name() string { return "fake" }

func (s *scriptedComplianceTransport) Send(ctx context.Context, req model.SendRequest) (string, error) {
	if s.err != nil {
		return "", &model.TransportError{Kind: model.ErrorKindServer, ModelID: req.ModelID, Err: s.err}
	}
	return s.reply, nil
}

func newCheckerWith(t *testing.T, tr model.Transport) *Checker {
	t.Helper()
	client, err := model.NewClient(model.Options{
		Backends: []model.Backend{{Transport: tr, Model: model.ModelSpec{ID: "fake-model"}}},
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return NewChecker(client, infra.NopLogger())
}
