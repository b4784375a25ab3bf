package llm

import (
	"fmt"
	"strings"

	"github.com/cwrk-planet/live-room-service/internal/domain"
)

func replySystemPrompt(rc domain.ReplyContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, the host of a live shopping stream.\n", rc.Streamer.Persona())
	b.WriteString("Answer viewers briefly and warmly, in the language they use. ")
	b.WriteString("Only state facts found in the product card below.\n\n")
	b.WriteString("Product card:\n")
	b.WriteString(productBrief(rc.Product))
	if rc.Narration != "" {
		b.WriteString("\nWhat you have said about it so far:\n")
		b.WriteString(rc.Narration)
	}
	return b.String()
}

func narrationSystemPrompt(s domain.Streamer) string {
	return fmt.Sprintf("You are %s, the host of a live shopping stream. "+
		"Write the spoken script that presents the product below: engaging, honest, under 300 words, no markdown.",
		s.Persona())
}

func productBrief(p domain.Product) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\n", p.Name)
	if p.Class != "" {
		fmt.Fprintf(&b, "Category: %s\n", p.Class)
	}
	if len(p.Highlights) > 0 {
		fmt.Fprintf(&b, "Highlights: %s\n", strings.Join(p.Highlights, "; "))
	}
	if p.Instruction != "" {
		fmt.Fprintf(&b, "Instruction: %s\n", p.Instruction)
	}
	if p.DeparturePlace != "" {
		fmt.Fprintf(&b, "Ships from: %s\n", p.DeparturePlace)
	}
	if p.DeliveryCompany != "" {
		fmt.Fprintf(&b, "Delivery: %s\n", p.DeliveryCompany)
	}
	fmt.Fprintf(&b, "Price: %.2f\n", p.Price)
	return b.String()
}
