package rules

import (
	"fmt"
	"regexp"
)

// Catalog is the immutable, ordered set of pattern rules the scanner
// evaluates. Construct it once at application start and share it; it is
// read-only and safe for concurrent use.
type Catalog struct {
	all  []PatternRule
	hard []PatternRule
}

// NewCatalog builds the built-in catalog. It panics if a rule pattern
// fails to compile or a rule ID repeats; both are programming errors in
// the static rule table, not runtime conditions.
func NewCatalog() *Catalog {
	all := builtinRules()

	seen := make(map[string]struct{}, len(all))
	hard := make([]PatternRule, 0, 8)
	for _, r := range all {
		if _, dup := seen[r.ID]; dup {
			panic(fmt.Sprintf("rules: duplicate rule ID %q", r.ID))
		}
		seen[r.ID] = struct{}{}
		if r.HardTrigger {
			hard = append(hard, r)
		}
	}

	return &Catalog{all: all, hard: hard}
}

// All returns every rule in evaluation order. Callers must not modify
// the returned slice.
func (c *Catalog) All() []PatternRule {
	return c.all
}

// HardTriggers returns the subset of rules whose match unconditionally
// blocks installation, in catalog order.
func (c *Catalog) HardTriggers() []PatternRule {
	return c.hard
}

// Len returns the number of rules in the catalog.
func (c *Catalog) Len() int {
	return len(c.all)
}

// builtinRules returns the full rule table. Order matters: matches are
// reported in catalog order, and tests pin individual IDs and weights.
func builtinRules() []PatternRule {
	return []PatternRule{
		// Destructive operations.
		{
			ID:          "RM_RF_ROOT",
			Name:        "Root filesystem deletion",
			Pattern:     regexp.MustCompile(`rm\s+(-[a-zA-Z]*)*\s*-r[a-zA-Z]*\s+(-[a-zA-Z]*\s+)*/($|\s|;|\|)`),
			Severity:    SeverityCritical,
			Category:    CategoryDestructive,
			Weight:      100,
			Description: "rm -rf targeting the root filesystem",
			HardTrigger: true,
			Confidence:  ConfidenceHigh,
			Remediation: "Remove the command. No skill legitimately deletes the root filesystem.",
			CWE:         "CWE-78",
		},
		{
			ID:          "RM_RF_HOME",
			Name:        "Home directory deletion",
			Pattern:     regexp.MustCompile(`rm\s+(-[a-zA-Z]*)*\s*-r[a-zA-Z]*\s+(-[a-zA-Z]*\s+)*(~|\$HOME)`),
			Severity:    SeverityCritical,
			Category:    CategoryDestructive,
			Weight:      90,
			Description: "rm -rf targeting the user home directory",
			HardTrigger: true,
			Confidence:  ConfidenceHigh,
			Remediation: "Remove the command or constrain it to a dedicated working directory.",
			CWE:         "CWE-78",
		},
		{
			ID:          "DD_WIPE",
			Name:        "Raw disk overwrite",
			Pattern:     regexp.MustCompile(`dd\s+.*of=/dev/(sd[a-z]|nvme|hd[a-z]|vd[a-z])`),
			Severity:    SeverityCritical,
			Category:    CategoryDestructive,
			Weight:      100,
			Description: "dd writing directly to a block device",
			HardTrigger: true,
			Confidence:  ConfidenceHigh,
			Remediation: "Remove the command. Writing to raw disk devices destroys data irreversibly.",
		},
		{
			ID:          "MKFS_FORMAT",
			Name:        "Disk format",
			Pattern:     regexp.MustCompile(`mkfs(\.[a-z0-9]+)?\s+/dev/`),
			Severity:    SeverityCritical,
			Category:    CategoryDestructive,
			Weight:      100,
			Description: "mkfs formatting a disk device",
			HardTrigger: true,
			Confidence:  ConfidenceHigh,
			Remediation: "Remove the command. Formatting host disks is never a skill concern.",
		},

		// Remote execution.
		{
			ID:          "CURL_PIPE_SH",
			Name:        "curl piped to shell",
			Pattern:     regexp.MustCompile(`curl\s+[^|]*\|\s*(ba)?sh`),
			Severity:    SeverityCritical,
			Category:    CategoryRemoteExec,
			Weight:      90,
			Description: "curl output piped into a shell",
			HardTrigger: true,
			Confidence:  ConfidenceHigh,
			Remediation: "Download the script, review it, and execute a pinned, checksummed copy instead.",
			CWE:         "CWE-494",
		},
		{
			ID:          "WGET_PIPE_SH",
			Name:        "wget piped to shell",
			Pattern:     regexp.MustCompile(`wget\s+[^|]*\|\s*(ba)?sh`),
			Severity:    SeverityCritical,
			Category:    CategoryRemoteExec,
			Weight:      90,
			Description: "wget output piped into a shell",
			HardTrigger: true,
			Confidence:  ConfidenceHigh,
			Remediation: "Download the script, review it, and execute a pinned, checksummed copy instead.",
			CWE:         "CWE-494",
		},
		{
			ID:          "BASE64_EXEC",
			Name:        "base64 decode piped to shell",
			Pattern:     regexp.MustCompile(`base64\s+(-d|--decode)[^|]*\|\s*(ba)?sh`),
			Severity:    SeverityCritical,
			Category:    CategoryRemoteExec,
			Weight:      85,
			Description: "base64-decoded payload piped into a shell",
			HardTrigger: true,
			Confidence:  ConfidenceHigh,
			Remediation: "Remove the obfuscated execution path; ship the code in the clear so it can be reviewed.",
			CWE:         "CWE-506",
		},
		{
			ID:          "REVERSE_SHELL",
			Name:        "Reverse shell",
			Pattern:     regexp.MustCompile(`(socket\.socket|s\.connect|os\.dup2|subprocess\.call.*bin/(ba)?sh)`),
			Severity:    SeverityCritical,
			Category:    CategoryRemoteExec,
			Weight:      95,
			Description: "reverse shell construction",
			HardTrigger: true,
			Confidence:  ConfidenceMedium,
			Remediation: "Remove the socket/dup2/shell plumbing. Skills must not open interactive shells to remote hosts.",
			CWE:         "CWE-506",
		},

		// Command injection / dynamic execution.
		{
			ID:          "PY_EVAL",
			Name:        "eval call",
			Pattern:     regexp.MustCompile(`\beval\s*\(`),
			Severity:    SeverityHigh,
			Category:    CategoryCmdInjection,
			Weight:      70,
			Description: "eval() dynamic code execution",
			HardTrigger: false,
			Confidence:  ConfidenceMedium,
			Remediation: "Replace eval with explicit parsing (ast.literal_eval, json) of the expected input shape.",
			CWE:         "CWE-95",
		},
		{
			ID:          "PY_EXEC",
			Name:        "exec call",
			Pattern:     regexp.MustCompile(`\bexec\s*\(`),
			Severity:    SeverityHigh,
			Category:    CategoryCmdInjection,
			Weight:      70,
			Description: "exec() dynamic code execution",
			HardTrigger: false,
			Confidence:  ConfidenceMedium,
			Remediation: "Remove exec; dispatch to named functions instead of executing constructed source.",
			CWE:         "CWE-95",
		},
		{
			ID:          "OS_SYSTEM",
			Name:        "os.system call",
			Pattern:     regexp.MustCompile(`os\.system\s*\(`),
			Severity:    SeverityHigh,
			Category:    CategoryCmdInjection,
			Weight:      65,
			Description: "os.system() shell execution",
			HardTrigger: false,
			Confidence:  ConfidenceHigh,
			Remediation: "Use subprocess with an argument list and shell disabled.",
			CWE:         "CWE-78",
		},
		{
			ID:          "SUBPROCESS_SHELL",
			Name:        "subprocess with shell=True",
			Pattern:     regexp.MustCompile(`subprocess\.(run|call|Popen)\s*\([^)]*shell\s*=\s*True`),
			Severity:    SeverityHigh,
			Category:    CategoryCmdInjection,
			Weight:      65,
			Description: "subprocess invoked with shell=True",
			HardTrigger: false,
			Confidence:  ConfidenceHigh,
			Remediation: "Pass an argument list and drop shell=True so no shell parses the command line.",
			CWE:         "CWE-78",
		},
		{
			ID:          "SUBPROCESS_CALL",
			Name:        "subprocess call",
			Pattern:     regexp.MustCompile(`subprocess\.(run|call|Popen)\s*\(`),
			Severity:    SeverityMedium,
			Category:    CategoryCmdInjection,
			Weight:      25,
			Description: "subprocess process invocation",
			HardTrigger: false,
			Confidence:  ConfidenceLow,
			Remediation: "Verify the invoked binary and arguments are fixed and expected for this skill.",
		},

		// Network exfiltration.
		{
			ID:          "CURL_POST",
			Name:        "curl POST",
			Pattern:     regexp.MustCompile(`curl\s+[^;|]*-X\s*POST`),
			Severity:    SeverityMedium,
			Category:    CategoryNetwork,
			Weight:      40,
			Description: "curl POST request",
			HardTrigger: false,
			Confidence:  ConfidenceMedium,
			Remediation: "Confirm the destination host and that no local data is uploaded without consent.",
			CWE:         "CWE-200",
		},
		{
			ID:          "NETCAT",
			Name:        "netcat connection",
			Pattern:     regexp.MustCompile(`\bnc\s+(-[a-z]*\s+)*[a-zA-Z0-9.-]+\s+\d+`),
			Severity:    SeverityHigh,
			Category:    CategoryNetwork,
			Weight:      60,
			Description: "netcat network connection",
			HardTrigger: false,
			Confidence:  ConfidenceMedium,
			Remediation: "Remove raw netcat connections; use an auditable HTTP client if network access is required.",
			CWE:         "CWE-200",
		},
		{
			ID:          "PY_URLLIB",
			Name:        "urllib request",
			Pattern:     regexp.MustCompile(`urllib\.request\.urlopen\s*\(`),
			Severity:    SeverityMedium,
			Category:    CategoryNetwork,
			Weight:      35,
			Description: "urllib network request",
			HardTrigger: false,
			Confidence:  ConfidenceLow,
			Remediation: "Confirm the fetched URL is fixed and documented by the skill.",
		},
		{
			ID:          "HTTP_REQUEST",
			Name:        "requests HTTP call",
			Pattern:     regexp.MustCompile(`requests\.(get|post|put|delete|patch)\s*\(`),
			Severity:    SeverityLow,
			Category:    CategoryNetwork,
			Weight:      15,
			Description: "Python requests HTTP call",
			HardTrigger: false,
			Confidence:  ConfidenceLow,
			Remediation: "Confirm the endpoints contacted are documented by the skill.",
		},

		// Privilege escalation.
		{
			ID:          "SUDO",
			Name:        "sudo invocation",
			Pattern:     regexp.MustCompile(`\bsudo\s+`),
			Severity:    SeverityHigh,
			Category:    CategoryPrivilege,
			Weight:      60,
			Description: "sudo privilege escalation",
			HardTrigger: false,
			Confidence:  ConfidenceMedium,
			Remediation: "Skills should run unprivileged; remove sudo or document exactly why elevation is needed.",
			CWE:         "CWE-250",
		},
		{
			ID:          "CHMOD_777",
			Name:        "world-writable chmod",
			Pattern:     regexp.MustCompile(`chmod\s+(-[a-zA-Z]*\s+)*7[0-7]{2}`),
			Severity:    SeverityHigh,
			Category:    CategoryPrivilege,
			Weight:      55,
			Description: "chmod granting overly broad permissions",
			HardTrigger: false,
			Confidence:  ConfidenceMedium,
			Remediation: "Use the narrowest mode that works (typically 0644 or 0755).",
			CWE:         "CWE-732",
		},
		{
			ID:          "SUDOERS",
			Name:        "sudoers modification",
			Pattern:     regexp.MustCompile(`(/etc/sudoers|visudo|NOPASSWD)`),
			Severity:    SeverityCritical,
			Category:    CategoryPrivilege,
			Weight:      95,
			Description: "sudoers configuration tampering",
			HardTrigger: true,
			Confidence:  ConfidenceHigh,
			Remediation: "Remove it. Granting passwordless sudo is a persistence backdoor, not a skill feature.",
			CWE:         "CWE-250",
		},

		// Persistence.
		{
			ID:          "CRONTAB",
			Name:        "cron persistence",
			Pattern:     regexp.MustCompile(`(crontab\s+-|/etc/cron)`),
			Severity:    SeverityHigh,
			Category:    CategoryPersistence,
			Weight:      65,
			Description: "crontab persistence",
			HardTrigger: false,
			Confidence:  ConfidenceMedium,
			Remediation: "Skills should not install scheduled jobs; remove the cron registration.",
			CWE:         "CWE-506",
		},
		{
			ID:          "SSH_KEYS",
			Name:        "SSH key injection",
			Pattern:     regexp.MustCompile(`(>>|>)\s*~?/?(\.ssh/authorized_keys|\.ssh/id_)`),
			Severity:    SeverityCritical,
			Category:    CategoryPersistence,
			Weight:      90,
			Description: "write into SSH key files",
			HardTrigger: true,
			Confidence:  ConfidenceHigh,
			Remediation: "Remove it. Appending to authorized_keys grants the author permanent remote access.",
			CWE:         "CWE-506",
		},

		// Hardcoded secrets.
		{
			ID:          "PRIVATE_KEY",
			Name:        "Hardcoded private key",
			Pattern:     regexp.MustCompile(`-----BEGIN\s+(RSA|OPENSSH|EC|DSA)?\s*PRIVATE KEY-----`),
			Severity:    SeverityHigh,
			Category:    CategorySecrets,
			Weight:      70,
			Description: "hardcoded private key block",
			HardTrigger: false,
			Confidence:  ConfidenceHigh,
			Remediation: "Remove the key from the package and rotate it; it must be considered compromised.",
			CWE:         "CWE-798",
		},
		{
			ID:          "API_KEY",
			Name:        "Hardcoded API key",
			Pattern:     regexp.MustCompile(`(api[_-]?key|apikey|api_secret)\s*[=:]\s*["'][a-zA-Z0-9_-]{16,}["']`),
			Severity:    SeverityHigh,
			Category:    CategorySecrets,
			Weight:      60,
			Description: "hardcoded API key",
			HardTrigger: false,
			Confidence:  ConfidenceMedium,
			Remediation: "Load the key from the environment or a credential store; rotate the exposed value.",
			CWE:         "CWE-798",
		},
		{
			ID:          "PASSWORD",
			Name:        "Hardcoded password",
			Pattern:     regexp.MustCompile(`(password|passwd|pwd)\s*[=:]\s*["'][^"']{4,}["']`),
			Severity:    SeverityHigh,
			Category:    CategorySecrets,
			Weight:      55,
			Description: "hardcoded password",
			HardTrigger: false,
			Confidence:  ConfidenceLow,
			Remediation: "Load the password from the environment or a credential store; rotate the exposed value.",
			CWE:         "CWE-798",
		},
		{
			ID:          "AWS_KEY",
			Name:        "AWS access key",
			Pattern:     regexp.MustCompile(`(AKIA|ASIA)[A-Z0-9]{16}`),
			Severity:    SeverityCritical,
			Category:    CategorySecrets,
			Weight:      80,
			Description: "AWS access key ID",
			HardTrigger: false,
			Confidence:  ConfidenceHigh,
			Remediation: "Revoke the key in IAM immediately and remove it from the package.",
			CWE:         "CWE-798",
		},
		{
			ID:          "GITHUB_TOKEN",
			Name:        "GitHub token",
			Pattern:     regexp.MustCompile(`ghp_[a-zA-Z0-9]{36}`),
			Severity:    SeverityCritical,
			Category:    CategorySecrets,
			Weight:      80,
			Description: "GitHub personal access token",
			HardTrigger: false,
			Confidence:  ConfidenceHigh,
			Remediation: "Revoke the token on GitHub immediately and remove it from the package.",
			CWE:         "CWE-798",
		},

		// Sensitive file access.
		{
			ID:          "CLOUD_CRED_READ",
			Name:        "Cloud credential file access",
			Pattern:     regexp.MustCompile(`(\.aws/credentials|\.config/gcloud|\.azure/credentials|\.kube/config)`),
			Severity:    SeverityMedium,
			Category:    CategorySensitiveFileAccess,
			Weight:      45,
			Description: "access to local cloud credential files",
			HardTrigger: false,
			Confidence:  ConfidenceMedium,
			Remediation: "Skills must not read host credential stores; take credentials via explicit configuration.",
			CWE:         "CWE-522",
		},
		{
			ID:          "SHADOW_READ",
			Name:        "System password file access",
			Pattern:     regexp.MustCompile(`/etc/(shadow|gshadow)`),
			Severity:    SeverityHigh,
			Category:    CategorySensitiveFileAccess,
			Weight:      65,
			Description: "access to the system password database",
			HardTrigger: false,
			Confidence:  ConfidenceHigh,
			Remediation: "Remove the access; nothing in a skill needs the host password database.",
			CWE:         "CWE-522",
		},
	}
}
