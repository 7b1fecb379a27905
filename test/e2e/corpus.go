// Package e2e runs the full select, extract, search, and export pipeline over a corpus of real files.
package e2e

import (
	"fmt"
	"strings"
	"unicode"
)

// Document is one corpus entry; Name is the file name without extension.
type Document struct {
	Name    string
	Title   string
	Content string
}

// Text is what gets written into the fixture file.
func (d Document) Text() string {
	return d.Title + "\n\n" + d.Content
}

// QueryTestCase defines a query and the file name stems that must appear in the hits.
type QueryTestCase struct {
	Query         string
	ExpectedNames []string
	Description   string
}

// Corpus holds documents and query test cases for E2E tests.
type Corpus struct {
	Documents []Document
	TestCases []QueryTestCase
}

var topics = []struct {
	title   string
	content string
}{
	{"Python Guide", "Python is a high-level programming language. Python programming language is used for web development and data science."},
	{"Kubernetes Docs", "Kubernetes is an open-source container orchestration platform. Kubernetes container orchestration automates deployment and scaling."},
	{"React Tutorial", "React is a JavaScript library. React hooks and components enable building user interfaces."},
	{"Go Language", "Go is a statically typed language. Go golang concurrency is achieved with goroutines and channels."},
	{"PostgreSQL Manual", "PostgreSQL is an advanced relational database. PostgreSQL relational database supports JSON and full-text search."},
	{"Docker Handbook", "Docker enables building and shipping applications. Docker container images are portable across environments."},
	{"Machine Learning", "Machine learning is a subset of AI. Machine learning algorithms learn patterns from data."},
	{"Neural Networks", "Neural networks are inspired by the brain. Neural network deep learning powers modern AI."},
	{"REST API Design", "REST is an architectural style for APIs. REST API endpoints use HTTP methods and status codes."},
	{"GraphQL Overview", "GraphQL is a query language for APIs. GraphQL query language lets clients request exactly what they need."},
	{"TypeScript Handbook", "TypeScript adds static types to JavaScript. TypeScript type system catches errors at compile time."},
	{"Redis Cache", "Redis is an in-memory data store. Redis in-memory cache is used for sessions and caching."},
	{"Elasticsearch Guide", "Elasticsearch is a search and analytics engine. Elasticsearch full-text search scales horizontally."},
	{"AWS Lambda", "AWS Lambda runs code without servers. AWS Lambda serverless scales automatically."},
	{"Terraform IaC", "Terraform manages cloud infrastructure. Terraform infrastructure as code is declarative."},
	{"Prometheus Metrics", "Prometheus is a monitoring system. Prometheus monitoring metrics are time-series based."},
	{"gRPC Overview", "gRPC is a high-performance RPC framework. gRPC remote procedure calls use HTTP/2 and protobuf."},
	{"OAuth 2.0", "OAuth 2.0 is an authorization framework. OAuth 2.0 authorization enables secure delegated access."},
	{"JWT Tokens", "JWT is a compact token format. JWT JSON web tokens are used for authentication."},
	{"CI/CD Pipelines", "CI/CD automates build and deployment. CI/CD continuous integration runs tests on every commit."},
	{"Git Workflow", "Git is a distributed version control system. Git version control tracks changes in source code."},
	{"SQL Basics", "SQL is used to manage relational data. SQL structured query language has SELECT INSERT UPDATE DELETE."},
	{"Microservices", "Microservices split an app into small services. Microservices architecture enables independent deployment."},
	{"Kafka Streams", "Apache Kafka is a distributed event stream platform. Apache Kafka streaming handles high throughput."},
	{"Nginx Config", "Nginx is a web server and reverse proxy. Nginx reverse proxy balances load and serves static files."},
	{"OOP Principles", "OOP organizes code around objects. Object-oriented programming uses encapsulation and inheritance."},
	{"Functional Programming", "Functional programming treats computation as functions. Functional programming paradigm avoids mutable state."},
	{"Cryptography Basics", "Cryptography secures data. Cryptography encryption decryption uses keys and algorithms."},
	{"Event Sourcing", "Event sourcing stores state as events. Event sourcing CQRS separates read and write models."},
	{"Agile Scrum", "Agile is an iterative approach. Agile Scrum sprint typically lasts two weeks."},
	{"Unit Testing", "Unit tests verify small units of code. Unit testing mock isolates dependencies."},
	{"Chaos Engineering", "Chaos engineering tests resilience. Chaos engineering resilience uses fault injection."},
	{"Graceful Shutdown", "Graceful shutdown drains connections. Graceful shutdown signal handles SIGTERM."},
	{"Secrets Management", "Secrets must not be in code. Secrets management vault encrypts and audits."},
	{"Service Mesh", "Service mesh manages service-to-service traffic. Service mesh Istio provides mTLS and observability."},
}

// queryPhrases each target words that occur in exactly one topic.
var queryPhrases = []string{
	"Kubernetes orchestration", "React hooks", "goroutines channels", "PostgreSQL", "portable images",
	"GraphQL", "TypeScript", "Redis", "Elasticsearch horizontally", "Lambda serverless",
	"Terraform", "Prometheus", "protobuf", "OAuth", "JWT",
	"Kafka", "Nginx", "encapsulation inheritance", "CQRS", "Scrum sprint",
	"fault injection", "SIGTERM", "vault", "Istio",
}

// BuildCorpus returns one document per topic and the query test cases that target them.
func BuildCorpus() *Corpus {
	docs := make([]Document, 0, len(topics))
	for i, t := range topics {
		docs = append(docs, Document{
			Name:    fmt.Sprintf("%02d-%s", i+1, slug(t.title)),
			Title:   t.title,
			Content: t.content,
		})
	}
	return &Corpus{Documents: docs, TestCases: buildQueryTestCases(docs)}
}

func buildQueryTestCases(docs []Document) []QueryTestCase {
	var cases []QueryTestCase
	for _, p := range queryPhrases {
		for _, d := range docs {
			if containsAllWords(d, p) {
				cases = append(cases, QueryTestCase{
					Query:         p,
					ExpectedNames: []string{d.Name},
					Description:   fmt.Sprintf("query %q should return %s", p, d.Name),
				})
				break
			}
		}
	}
	return cases
}

// containsAllWords reports whether every word of query occurs in the document, ignoring case.
func containsAllWords(d Document, query string) bool {
	text := strings.ToLower(d.Text())
	for _, w := range strings.Fields(strings.ToLower(query)) {
		if !strings.Contains(text, w) {
			return false
		}
	}
	return true
}

// slug lower-cases s and replaces every run of non-alphanumerics with one hyphen.
func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
