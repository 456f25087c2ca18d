// Package service orchestrates game operations over the engine, the
// session repository and the theme catalog.
//
// GameService is the single entry point for request handlers: every
// operation is one short-lived read-modify-write cycle against the
// repository. The service owns cross-cutting decisions the engine stays
// ignorant of — which theme pool feeds deck generation, which sessions
// the public directory shows, and which mutations must go through the
// repository's optimistic update path instead of a blind save.
package service
