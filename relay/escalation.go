package relay

import (
	"fmt"
	"strings"
	"time"
)

// Decision is the escalation outcome for one turn.
type Decision struct {
	ShouldNotify bool
	// ReasonLabel is "<key> - <title>" when a menu option triggered the
	// escalation, empty for keyword-triggered notices.
	ReasonLabel string
}

// EvaluateMenu decides escalation for a matched menu option. The
// requires_escalation flag lives on the option record; there is no
// hardcoded key list.
func (p Persona) EvaluateMenu(key string) Decision {
	opt, ok := p.Menu.Options[key]
	if !ok || !opt.RequiresEscalation {
		return Decision{}
	}
	title := opt.Title
	if title == "" {
		title = fmt.Sprintf("Opção %s", key)
	}
	return Decision{
		ShouldNotify: true,
		ReasonLabel:  fmt.Sprintf("%s - %s", key, title),
	}
}

// EvaluateReply decides escalation for the free-form path by scanning
// the generated reply for escalation keywords. Matching the reply
// rather than the request can over- and under-trigger; there is no
// dedup of repeated notices for the same conversation.
func (p Persona) EvaluateReply(reply string) Decision {
	lower := strings.ToLower(reply)
	for _, keyword := range p.EscalationKeywords {
		if keyword == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(keyword)) {
			return Decision{ShouldNotify: true}
		}
	}
	return Decision{}
}

// DisplayNumber strips the JID suffixes for human-facing output.
func DisplayNumber(jid string) string {
	jid = strings.ReplaceAll(jid, "@s.whatsapp.net", "")
	return strings.ReplaceAll(jid, "@g.us", "")
}

// NotificationMessage renders the staff-group notice for a customer
// turn that needs human attention.
func NotificationMessage(customerJID, customerMessage, reasonLabel string, now time.Time) string {
	timestamp := now.Format("02/01/2006 às 15:04")

	parts := []string{
		"🔔 *NOVA SOLICITAÇÃO DE ATENDIMENTO*",
		"",
		fmt.Sprintf("👤 *Cliente:* %s", DisplayNumber(customerJID)),
		fmt.Sprintf("⏰ *Horário:* %s", timestamp),
		"",
	}
	if reasonLabel != "" {
		parts = append(parts,
			fmt.Sprintf("📋 *Opção do menu:* %s", reasonLabel),
			"",
		)
	}
	parts = append(parts,
		"📝 *Mensagem:*",
		customerMessage,
		"",
		"---",
		"_Atender o cliente iniciando conversa com o número dele_",
	)
	return strings.Join(parts, "\n")
}
