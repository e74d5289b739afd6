// Package locale provides the localized strings used in scan reports
// and installer messages.
//
// Only the language of recommendation and block-message strings is
// affected by the locale; matching and scoring never are. Unknown
// locale codes fall back to the fixed default.
package locale

import "fmt"

// Fallback is the locale used when the caller supplies an unrecognized
// code.
const Fallback = "en"

// Supported locale codes.
const (
	English = "en"
	Chinese = "zh"
)

// Validate returns code if it is a supported locale, or Fallback.
func Validate(code string) string {
	switch code {
	case English, Chinese:
		return code
	default:
		return Fallback
	}
}

// T returns the message for key in the given locale, formatted with
// args. Unknown locales fall back to the default locale; an unknown key
// returns the key itself so a missing entry is visible instead of
// silent.
func T(code, key string, args ...any) string {
	code = Validate(code)
	msg, ok := messages[code][key]
	if !ok {
		msg, ok = messages[Fallback][key]
	}
	if !ok {
		return key
	}
	if len(args) == 0 {
		return msg
	}
	return fmt.Sprintf(msg, args...)
}

// Message keys. Kept string-typed and centralized so the scan and
// installer packages reference the same table.
const (
	KeyBlockedMessage     = "security.blocked_message"
	KeyScoreWarningSevere = "security.score_warning_severe"
	KeyScoreWarningMedium = "security.score_warning_medium"
	KeyNoIssues           = "security.no_issues"

	// KeyHardTriggerIssue formats rule name, file, line, description.
	KeyHardTriggerIssue = "security.hard_trigger_issue"

	KeyRecommendDestructive   = "security.recommendations.destructive"
	KeyRecommendRemoteExec    = "security.recommendations.remote_exec"
	KeyRecommendCmdInjection  = "security.recommendations.cmd_injection"
	KeyRecommendNetwork       = "security.recommendations.network"
	KeyRecommendSecrets       = "security.recommendations.secrets"
	KeyRecommendPersistence   = "security.recommendations.persistence"
	KeyRecommendPrivilege     = "security.recommendations.privilege"
	KeyRecommendSensitiveFile = "security.recommendations.sensitive_file"

	KeyErrDirectoryNotExist = "common.errors.directory_not_exist"
	KeyErrFileNotFound      = "common.errors.file_not_found"
	KeyErrPathNotFile       = "common.errors.path_not_file"
	KeyErrReadFailed        = "common.errors.read_failed"

	KeyInstallBlocked = "install.blocked"
)

var messages = map[string]map[string]string{
	English: {
		KeyBlockedMessage:     "Installation blocked: this skill contains patterns that are considered unconditionally dangerous.",
		KeyScoreWarningSevere: "This skill scored very low on the security scan. Do not install it unless you fully trust the author and have reviewed every flagged line.",
		KeyScoreWarningMedium: "This skill triggered several security warnings. Review the flagged lines before installing.",
		KeyNoIssues:           "No dangerous patterns were found in this skill.",

		KeyHardTriggerIssue: "%s in %s (line %d): %s",

		KeyRecommendDestructive:   "Destructive commands detected. Verify the skill never touches files outside its own directory.",
		KeyRecommendRemoteExec:    "Remote code execution patterns detected. Never install skills that download and run code.",
		KeyRecommendCmdInjection:  "Dynamic code or shell execution detected. Check what input reaches these calls.",
		KeyRecommendNetwork:       "Network activity detected. Confirm which hosts are contacted and what data is sent.",
		KeyRecommendSecrets:       "Hardcoded credentials detected. Treat any exposed key or password as compromised and rotate it.",
		KeyRecommendPersistence:   "Persistence mechanisms detected. The skill may keep running or retain access after use.",
		KeyRecommendPrivilege:     "Privilege escalation detected. The skill should not need elevated permissions.",
		KeyRecommendSensitiveFile: "Access to sensitive system or credential files detected. Verify why the skill reads them.",

		KeyErrDirectoryNotExist: "directory does not exist or is not a directory: %s",
		KeyErrFileNotFound:      "file not found: %s",
		KeyErrPathNotFile:       "path is not a file: %s",
		KeyErrReadFailed:        "failed to read %s: %s",

		KeyInstallBlocked: "installation of %s was blocked by the security scan",
	},
	Chinese: {
		KeyBlockedMessage:     "安装已被阻止：该技能包含被视为绝对危险的模式。",
		KeyScoreWarningSevere: "该技能的安全评分非常低。除非您完全信任作者并已审查每一处标记的代码，否则请勿安装。",
		KeyScoreWarningMedium: "该技能触发了多项安全警告，请在安装前审查被标记的代码行。",
		KeyNoIssues:           "未在该技能中发现危险模式。",

		KeyHardTriggerIssue: "%s，位于 %s（第 %d 行）：%s",

		KeyRecommendDestructive:   "检测到破坏性命令。请确认该技能不会操作自身目录以外的文件。",
		KeyRecommendRemoteExec:    "检测到远程代码执行模式。切勿安装会下载并执行代码的技能。",
		KeyRecommendCmdInjection:  "检测到动态代码或 Shell 执行。请检查哪些输入会到达这些调用。",
		KeyRecommendNetwork:       "检测到网络活动。请确认其连接的主机及发送的数据。",
		KeyRecommendSecrets:       "检测到硬编码凭据。任何泄露的密钥或密码都应视为已泄露并立即轮换。",
		KeyRecommendPersistence:   "检测到持久化机制。该技能可能在使用后继续运行或保留访问权限。",
		KeyRecommendPrivilege:     "检测到权限提升。技能不应需要提升的权限。",
		KeyRecommendSensitiveFile: "检测到对敏感系统文件或凭据文件的访问。请确认其读取原因。",

		KeyErrDirectoryNotExist: "目录不存在或不是目录：%s",
		KeyErrFileNotFound:      "文件不存在：%s",
		KeyErrPathNotFile:       "路径不是文件：%s",
		KeyErrReadFailed:        "读取 %s 失败：%s",

		KeyInstallBlocked: "%s 的安装已被安全扫描阻止",
	},
}
