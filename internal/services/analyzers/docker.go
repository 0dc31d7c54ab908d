package analyzers

import (
	"regexp"
	"strings"

	"github.com/ternarybob/scrutor/internal/models"
)

// DockerAnalyzer inspects Dockerfiles with per-line and whole-file checks:
// root user, secret ENV values, base image tags, ADD vs COPY, apt-get
// layering, layer count, and missing CMD/ENTRYPOINT. The apt-get layering
// detection is best-effort; multi-line RUN commands can slip past it.
type DockerAnalyzer struct{}

// NewDockerAnalyzer creates a Dockerfile analyzer
func NewDockerAnalyzer() *DockerAnalyzer { return &DockerAnalyzer{} }

// Language implements Analyzer
func (a *DockerAnalyzer) Language() string { return LangDocker }

var (
	dockerInstructionRe = regexp.MustCompile(`(?m)^\s*(FROM|RUN|CMD|LABEL|EXPOSE|ENV|ADD|COPY|ENTRYPOINT|VOLUME|USER|WORKDIR|ARG|ONBUILD|HEALTHCHECK|SHELL)\s+`)
	dockerUserRe        = regexp.MustCompile(`(?m)^\s*USER\s+`)
	dockerEntrypointRe  = regexp.MustCompile(`(?m)^\s*(ENTRYPOINT|CMD)\s+`)
	dockerRunRe         = regexp.MustCompile(`(?m)^\s*RUN\s+(.+)$`)
	dockerEnvSecretRe   = regexp.MustCompile(`(?i)^\s*ENV\s+.*(PASSWORD|SECRET|TOKEN|KEY)`)
	dockerCopyEnvRe     = regexp.MustCompile(`(?i)^\s*COPY\s+.*\.env\s+`)
	dockerUserRootRe    = regexp.MustCompile(`(?i)^\s*USER\s+root\b`)
)

// Analyze implements Analyzer
func (a *DockerAnalyzer) Analyze(path string, content []byte) ([]models.CodeIssue, models.FileMetrics) {
	text := string(content)
	lines := strings.Split(text, "\n")

	var issues []models.CodeIssue
	issues = append(issues, dockerSecurityIssues(path, text, lines)...)
	issues = append(issues, dockerBestPracticeIssues(path, text, lines)...)
	issues = append(issues, dockerBaseImageIssues(path, lines)...)

	numInstructions := len(dockerInstructionRe.FindAllString(text, -1))
	complexity := 1.0
	if numInstructions > 0 {
		complexity = float64(numInstructions) / 5
	}

	metrics := models.FileMetrics{
		FilePath:        path,
		Language:        LangDocker,
		LinesOfCode:     len(lines),
		ComplexityScore: complexity,
	}
	return issues, metrics
}

func dockerSecurityIssues(path, content string, lines []string) []models.CodeIssue {
	var issues []models.CodeIssue

	if !dockerUserRe.MatchString(content) {
		title := "Container runs as root user"
		issues = append(issues, models.CodeIssue{
			ID:          models.IssueID(path, 1, title),
			Category:    models.CategorySecurity,
			Severity:    models.SeverityMedium,
			Title:       title,
			Description: "Running containers as root is a security risk. Consider adding a USER directive with a non-root user.",
			FilePath:    path,
			LineNumber:  1,
			CodeSnippet: "# No USER directive found (container will run as root)",
			Suggestion:  "Add a USER directive with a non-root user.",
			ImpactScore: 7.0,
		})
	}

	for i, raw := range lines {
		lineNo := i + 1
		stripped := strings.TrimSpace(raw)

		var description string
		if dockerEnvSecretRe.MatchString(raw) {
			description = "Hardcoded credentials in ENV variables are a security risk."
		} else if dockerCopyEnvRe.MatchString(raw) {
			description = "Copying .env files into Docker images may expose sensitive data."
		} else if dockerUserRootRe.MatchString(raw) {
			description = "Running as root in containers is a security risk. Consider using a non-root user."
		}
		if description == "" {
			continue
		}

		title := "Docker security issue"
		issues = append(issues, models.CodeIssue{
			ID:          models.IssueID(path, lineNo, title),
			Category:    models.CategorySecurity,
			Severity:    models.SeverityHigh,
			Title:       title,
			Description: description,
			FilePath:    path,
			LineNumber:  lineNo,
			CodeSnippet: stripped,
			Suggestion:  description,
			ImpactScore: 8.0,
		})
	}

	return issues
}

func dockerBestPracticeIssues(path, content string, lines []string) []models.CodeIssue {
	var issues []models.CodeIssue

	// Layer count: more than three RUN instructions where fewer than half
	// chain commands suggests unnecessary layers.
	runCommands := dockerRunRe.FindAllStringSubmatch(content, -1)
	if len(runCommands) > 3 {
		chained := 0
		for _, cmd := range runCommands {
			if strings.Contains(cmd[1], "&&") {
				chained++
			}
		}
		if float64(chained)/float64(len(runCommands)) < 0.5 {
			firstRunLine := 1
			for i, line := range lines {
				if strings.HasPrefix(strings.TrimSpace(line), "RUN") {
					firstRunLine = i + 1
					break
				}
			}
			title := "Too many Docker layers"
			issues = append(issues, models.CodeIssue{
				ID:          models.IssueID(path, firstRunLine, title),
				Category:    models.CategoryPerformance,
				Severity:    models.SeverityLow,
				Title:       title,
				Description: "Having too many RUN instructions creates unnecessary layers. Consider combining commands with && to reduce layers.",
				FilePath:    path,
				LineNumber:  firstRunLine,
				CodeSnippet: "Multiple RUN instructions detected",
				Suggestion:  "Combine related RUN instructions with && to reduce layers.",
				ImpactScore: 4.0,
			})
		}
	}

	if !dockerEntrypointRe.MatchString(content) {
		title := "Missing ENTRYPOINT or CMD"
		issues = append(issues, models.CodeIssue{
			ID:          models.IssueID(path, len(lines), title),
			Category:    models.CategoryCorrectness,
			Severity:    models.SeverityMedium,
			Title:       title,
			Description: "A Dockerfile should have either an ENTRYPOINT or CMD instruction to specify what runs when the container starts.",
			FilePath:    path,
			LineNumber:  len(lines),
			CodeSnippet: "# No ENTRYPOINT or CMD found",
			Suggestion:  "Add an ENTRYPOINT or CMD instruction to specify what should run when the container starts.",
			ImpactScore: 6.0,
		})
	}

	for i, raw := range lines {
		lineNo := i + 1
		stripped := strings.TrimSpace(raw)
		upper := strings.ToUpper(stripped)

		var description string
		switch {
		case strings.HasPrefix(upper, "ADD "):
			description = "COPY is preferred over ADD for simple file copying, as ADD has some surprising behaviors."
		case strings.HasPrefix(upper, "RUN ") && strings.Contains(stripped, "apt-get update") && !strings.Contains(stripped, "&&"):
			description = "apt-get update should be in the same layer as apt-get install."
		case strings.Contains(stripped, "apt-get install") && !strings.Contains(stripped, "--no-install-recommends"):
			description = "Consider adding --no-install-recommends to reduce image size."
		}
		if description == "" {
			continue
		}

		title := "Docker best practice issue"
		issues = append(issues, models.CodeIssue{
			ID:          models.IssueID(path, lineNo, title),
			Category:    models.CategoryStyle,
			Severity:    models.SeverityLow,
			Title:       title,
			Description: description,
			FilePath:    path,
			LineNumber:  lineNo,
			CodeSnippet: stripped,
			Suggestion:  description,
			ImpactScore: 3.5,
		})
	}

	return issues
}

func dockerBaseImageIssues(path string, lines []string) []models.CodeIssue {
	var issues []models.CodeIssue

	type fromLine struct {
		lineNo int
		text   string
	}
	var froms []fromLine
	for i, raw := range lines {
		stripped := strings.TrimSpace(raw)
		if strings.HasPrefix(strings.ToUpper(stripped), "FROM ") {
			froms = append(froms, fromLine{lineNo: i + 1, text: stripped})
		}
	}

	if len(froms) == 0 {
		title := "Missing FROM instruction"
		return []models.CodeIssue{{
			ID:          models.IssueID(path, 1, title),
			Category:    models.CategoryCorrectness,
			Severity:    models.SeverityHigh,
			Title:       title,
			Description: "A valid Dockerfile must have a FROM instruction to specify the base image.",
			FilePath:    path,
			LineNumber:  1,
			CodeSnippet: "# No FROM instruction found",
			Suggestion:  "Add a FROM instruction to specify the base image.",
			ImpactScore: 8.0,
		}}
	}

	outdated := loadRules().OutdatedBaseImages
	for _, from := range froms {
		if strings.Contains(from.text, ":latest") || !strings.Contains(from.text, ":") {
			title := "Using latest tag"
			issues = append(issues, models.CodeIssue{
				ID:          models.IssueID(path, from.lineNo, title),
				Category:    models.CategoryMaintainability,
				Severity:    models.SeverityMedium,
				Title:       title,
				Description: "Using the 'latest' tag or no tag (which defaults to 'latest') makes builds non-reproducible.",
				FilePath:    path,
				LineNumber:  from.lineNo,
				CodeSnippet: from.text,
				Suggestion:  "Specify a fixed version tag for the base image.",
				ImpactScore: 6.0,
			})
		}

		for _, base := range outdated {
			if strings.Contains(from.text, base) {
				title := "Outdated base image"
				issues = append(issues, models.CodeIssue{
					ID:          models.IssueID(path, from.lineNo, title),
					Category:    models.CategorySecurity,
					Severity:    models.SeverityHigh,
					Title:       title,
					Description: "Using an outdated base image can introduce security vulnerabilities.",
					FilePath:    path,
					LineNumber:  from.lineNo,
					CodeSnippet: from.text,
					Suggestion:  "Update to a more recent base image version.",
					ImpactScore: 7.5,
				})
				break
			}
		}
	}

	return issues
}

// ExtractDockerRefs returns the build references of a Dockerfile: base
// images as "docker:{base}" targets and COPY --from stage names. Used by
// the dependency-graph builder.
func ExtractDockerRefs(content []byte) []string {
	var refs []string
	for _, raw := range strings.Split(string(content), "\n") {
		stripped := strings.TrimSpace(raw)
		upper := strings.ToUpper(stripped)
		if strings.HasPrefix(upper, "FROM ") {
			fields := strings.Fields(stripped)
			if len(fields) >= 2 {
				refs = append(refs, "docker:"+fields[1])
			}
		}
		if strings.HasPrefix(upper, "COPY ") && strings.Contains(stripped, "--from=") {
			idx := strings.Index(stripped, "--from=")
			rest := stripped[idx+len("--from="):]
			if end := strings.IndexAny(rest, " \t"); end > 0 {
				rest = rest[:end]
			}
			if rest != "" {
				refs = append(refs, rest)
			}
		}
	}
	return refs
}
