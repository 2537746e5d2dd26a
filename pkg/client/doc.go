// Package client is the entry point of the anfrage SDK: a Responses API
// client with automatic failure recovery built in.
//
// A Client bundles the endpoint services (Responses, Files, VectorStores,
// Images, Models) behind one HTTP pipeline. Every call shares the same
// boundary: failures come back as *classify.Error values carrying the
// semantic class, retry metadata, and the server request id. Responses
// creation runs through the recovery orchestrator, so expired execution
// containers, rate limits, and gateway failures are retried (and
// container references pruned) according to the configured policy.
//
// Minimal use:
//
//	c, err := client.New(os.Getenv("OPENAI_API_KEY"))
//	if err != nil {
//		log.Fatal(err)
//	}
//	resp, err := c.Responses.Create(ctx, &api.Request{
//		Model: api.ModelGPT4o,
//		Input: api.TextInput("hello"),
//	})
//
// Multi-turn conversations are handled by Thread, which tracks the
// previous_response_id chain and records turns in the configured
// conversation store.
package client
