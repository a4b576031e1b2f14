// Package llmclient is the reasoning-model boundary of the agent core.
//
// The orchestrator only depends on the Reasoner contract: given an
// assembled model input, Complete returns either a final answer or a list
// of requested tool calls. This package supplies the shared message and
// tool-call types, the provider error taxonomy, a retry helper, and a
// gollm-backed implementation of the contract.
//
// Hosts that talk to a provider not covered by gollm can implement
// Reasoner directly and hand it to the orchestrator.
package llmclient
