package domain

// CommandKind identifies one of the four brew invocations the maintainer
// issues.
type CommandKind string

const (
	KindUpdate   CommandKind = "update"
	KindOutdated CommandKind = "outdated"
	KindUpgrade  CommandKind = "upgrade"
	KindCleanup  CommandKind = "cleanup"
)

// BrewCommand is the canonical representation of a single brew invocation.
// It is immutable once constructed: the constructors copy the env map in,
// and Env copies it back out.
type BrewCommand struct {
	kind    CommandKind
	pkgName string
	envs    map[string]string
}

// NewUpdateCommand describes `brew update`.
func NewUpdateCommand(envs map[string]string) BrewCommand {
	return BrewCommand{kind: KindUpdate, envs: copyEnvs(envs)}
}

// NewOutdatedCommand describes `brew outdated --json`.
func NewOutdatedCommand(envs map[string]string) BrewCommand {
	return BrewCommand{kind: KindOutdated, envs: copyEnvs(envs)}
}

// NewUpgradeCommand describes `brew upgrade <name>` for a single package.
// The name is passed through as one argv slot, never quoted or escaped;
// the executor rejects an empty name before spawning.
func NewUpgradeCommand(packageName string, envs map[string]string) BrewCommand {
	return BrewCommand{kind: KindUpgrade, pkgName: packageName, envs: copyEnvs(envs)}
}

// NewCleanupCommand describes `brew cleanup`.
func NewCleanupCommand(envs map[string]string) BrewCommand {
	return BrewCommand{kind: KindCleanup, envs: copyEnvs(envs)}
}

// Kind returns which brew subcommand this invocation runs.
func (c BrewCommand) Kind() CommandKind {
	return c.kind
}

// PackageName returns the upgrade target. Empty for non-upgrade commands.
func (c BrewCommand) PackageName() string {
	return c.pkgName
}

// Argv renders the command's arguments. Pure and deterministic: identical
// commands always yield identical argv.
func (c BrewCommand) Argv() []string {
	switch c.kind {
	case KindUpdate:
		return []string{"update"}
	case KindOutdated:
		return []string{"outdated", "--json"}
	case KindUpgrade:
		return []string{"upgrade", c.pkgName}
	case KindCleanup:
		return []string{"cleanup"}
	default:
		return nil
	}
}

// Env returns the command's environment variables verbatim.
func (c BrewCommand) Env() map[string]string {
	return copyEnvs(c.envs)
}

func copyEnvs(envs map[string]string) map[string]string {
	out := make(map[string]string, len(envs))
	for k, v := range envs {
		out[k] = v
	}
	return out
}
