// Package adapter provides the public surface of genaihub: a single
// normalized chat-completion operation over whichever backend transport the
// credential resolver found reachable at construction time. Callers see one
// stable contract — [Adapter.CreateMessage] returning a lazy stream of text
// deltas, and [Adapter.GetModel] for capability introspection — regardless
// of whether requests travel through the direct model-serving client, the
// orchestration client, or the deployment-proxy fallback.
package adapter
