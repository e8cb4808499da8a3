package chatflow_test

import (
	"context"
	"fmt"
	"log"

	"github.com/utopium/chatflow"
	"github.com/utopium/chatflow/pkg/domain"
)

// ExampleEngine_Submit walks into the post-creation flow. Picking a quick reply is
// the same as typing its label.
func ExampleEngine_Submit() {
	eng := chatflow.New()
	ctx := context.Background()

	if _, err := eng.Open(ctx, "demo"); err != nil {
		log.Fatal(err)
	}

	reply, err := eng.Submit(ctx, "demo", "Create Post")
	if err != nil {
		log.Fatal(err)
	}

	for _, msg := range reply.Messages {
		fmt.Println(msg.Content)
		fmt.Println(msg.QuickReplies)
	}
	// Output:
	// What account are we posting to?
	// [animeutopia wrestleutopia driftutopia xputopia critterutopia cyberutopia]
}

// ExampleEngine_AttachFile shows a host that receives files out-of-band. Without a
// backend the generation fails inline and the menu comes back.
func ExampleEngine_AttachFile() {
	eng := chatflow.New()
	ctx := context.Background()

	var reply *chatflow.Reply
	for _, in := range []string{"create image", "a lighthouse at dusk", "yes"} {
		var err error
		if reply, err = eng.Submit(ctx, "demo", in); err != nil {
			log.Fatal(err)
		}
	}
	fmt.Println(reply.Pending.Purpose)

	reply, err := eng.AttachFile(ctx, "demo", &domain.Attachment{Name: "ref.png"})
	if err != nil {
		log.Fatal(err)
	}
	for _, msg := range reply.Messages {
		fmt.Println(msg.Content)
	}
	// Output:
	// reference
	// Generating your image...
	// Error: no backend configured
	// Anything else I can help you with?
}
