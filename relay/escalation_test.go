package relay

import (
	"strings"
	"testing"
	"time"
)

func testPersona() Persona {
	p := defaultPersona()
	p.Menu = Menu{
		Enabled: true,
		Options: map[string]MenuOption{
			"3": {Title: "Agendar exame", Response: "Vamos agendar seu exame.", RequiresEscalation: true},
			"5": {Title: "Endereço", Response: "Rua das Flores, 100."},
		},
	}
	p.EscalationKeywords = []string{"jailson", "josimar", "consultor", "especialista", "atendimento"}
	return p
}

func TestEvaluateMenu(t *testing.T) {
	t.Parallel()

	p := testPersona()

	d := p.EvaluateMenu("3")
	if !d.ShouldNotify {
		t.Fatalf("EvaluateMenu(3).ShouldNotify = false, want true")
	}
	if d.ReasonLabel != "3 - Agendar exame" {
		t.Fatalf("EvaluateMenu(3).ReasonLabel = %q, want %q", d.ReasonLabel, "3 - Agendar exame")
	}

	if d := p.EvaluateMenu("5"); d.ShouldNotify {
		t.Fatalf("EvaluateMenu(5).ShouldNotify = true for non-escalating option")
	}
	if d := p.EvaluateMenu("9"); d.ShouldNotify {
		t.Fatalf("EvaluateMenu(9).ShouldNotify = true for absent option")
	}
}

func TestEvaluateReply(t *testing.T) {
	t.Parallel()

	p := testPersona()

	d := p.EvaluateReply("Vou chamar o Josimar para te ajudar.")
	if !d.ShouldNotify {
		t.Fatalf("EvaluateReply() ShouldNotify = false, want true")
	}
	if d.ReasonLabel != "" {
		t.Fatalf("EvaluateReply() ReasonLabel = %q, want empty", d.ReasonLabel)
	}

	if d := p.EvaluateReply("Funcionamos de 8h às 18h."); d.ShouldNotify {
		t.Fatalf("EvaluateReply() ShouldNotify = true for neutral reply")
	}
}

func TestNotificationMessage(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 8, 30, 14, 5, 0, 0, time.UTC)
	msg := NotificationMessage("5544990011222@s.whatsapp.net", "quero agendar um exame", "3 - Agendar exame", now)

	for _, want := range []string{
		"NOVA SOLICITAÇÃO DE ATENDIMENTO",
		"*Cliente:* 5544990011222",
		"30/08/2025 às 14:05",
		"*Opção do menu:* 3 - Agendar exame",
		"quero agendar um exame",
	} {
		if !strings.Contains(msg, want) {
			t.Fatalf("NotificationMessage() missing %q in:\n%s", want, msg)
		}
	}
	if strings.Contains(msg, "@s.whatsapp.net") {
		t.Fatalf("NotificationMessage() leaked raw JID:\n%s", msg)
	}
}

func TestNotificationMessageNoMenuLine(t *testing.T) {
	t.Parallel()

	msg := NotificationMessage("5544990011222@s.whatsapp.net", "preciso de ajuda", "", time.Now())
	if strings.Contains(msg, "Opção do menu") {
		t.Fatalf("NotificationMessage() has menu line without reason:\n%s", msg)
	}
}
