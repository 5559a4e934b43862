// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Backends
//
// Every kernel needs all three; none is optional:
//
//   - CompletionService: Text generation (Azure OpenAI, OpenAI)
//   - EmbeddingService: Text to vector (Azure OpenAI, OpenAI)
//   - VectorStore: Memory persistence and similarity search
//
// # Factories
//
//   - AIServiceFactory: Builds CompletionService and EmbeddingService
//   - MemoryStoreFactory: Builds VectorStore
//
// # Collaborators
//
//   - SkillRegistrar: Attaches skills to an assembled kernel via SkillHost
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
