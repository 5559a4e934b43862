// Package services implements the driving port interfaces.
// Services contain the core kernel logic: assembling backends from settings,
// semantic memory on top of an embedder and a vector store, and the kernel
// that owns attached skills.
//
// Services depend only on the domain, the ports and the logger.
package services
