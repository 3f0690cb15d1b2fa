package model

// Rule selects how a raw manifest string is coerced into an AttrValue.
type Rule int

const (
	// RuleText keeps the raw string.
	RuleText Rule = iota
	// RuleBool applies the loose boolean policy.
	RuleBool
	// RuleInt parses a base-10 or 0x-prefixed integer.
	RuleInt
	// RuleReal parses a floating point number.
	RuleReal
)

// String returns the rule name.
func (r Rule) String() string {
	switch r {
	case RuleText:
		return "text"
	case RuleBool:
		return "bool"
	case RuleInt:
		return "int"
	case RuleReal:
		return "real"
	default:
		return "unknown"
	}
}

// AttrSpec describes one attribute of a component kind. Name is both the
// local name under the Android namespace and the persisted column name.
type AttrSpec struct {
	Name    string
	Rule    Rule
	Default AttrValue
}

// SchemaVersion is bumped whenever an attribute list below changes.
const SchemaVersion = 1

func text(name string) AttrSpec    { return AttrSpec{Name: name, Rule: RuleText} }
func boolean(name string) AttrSpec { return AttrSpec{Name: name, Rule: RuleBool, Default: Bool(false)} }

var applicationSchema = []AttrSpec{
	text("name"),
	text("allowTaskReparenting"),
	boolean("allowBackup"),
	boolean("allowClearUserData"),
	boolean("allowNativeHeapPointerTagging"),
	text("appCategory"),
	text("backupAgent"),
	boolean("backupInForeground"),
	text("banner"),
	text("dataExtractionRules"),
	boolean("debuggable"),
	text("description"),
	boolean("enabled"),
	boolean("enableOnBackInvokedCallback"),
	boolean("extractNativeLibs"),
	text("fullBackupContent"),
	boolean("fullBackupOnly"),
	text("gwpAsanMode"),
	boolean("hasCode"),
	boolean("hasFragileUserData"),
	boolean("hardwareAccelerated"),
	boolean("isGame"),
	text("isMonitoringTool"),
	boolean("killAfterRestore"),
	boolean("largeHeap"),
	text("label"),
	text("logo"),
	text("manageSpaceActivity"),
	text("networkSecurityConfig"),
	text("permission"),
	boolean("persistent"),
	text("process"),
	boolean("restoreAnyVersion"),
	text("requestLegacyExternalStorage"),
	text("requiredAccountType"),
	boolean("resizeableActivity"),
	text("restrictedAccountType"),
	boolean("supportsRtl"),
	text("taskAffinity"),
	text("testOnly"),
	text("theme"),
	text("uiOptions"),
	boolean("usesCleartextTraffic"),
	boolean("vmSafeMode"),
}

var activitySchema = []AttrSpec{
	text("name"),
	boolean("allowEmbedded"),
	boolean("allowTaskReparenting"),
	boolean("alwaysRetainTaskState"),
	boolean("autoRemoveFromRecents"),
	text("banner"),
	boolean("canDisplayOnRemoteDevices"),
	boolean("clearTaskOnLaunch"),
	text("colorMode"),
	text("configChanges"),
	boolean("directBootAware"),
	text("documentLaunchMode"),
	boolean("enabled"),
	boolean("enableOnBackInvokedCallback"),
	boolean("excludeFromRecents"),
	boolean("exported"),
	boolean("finishOnTaskLaunch"),
	boolean("hardwareAccelerated"),
	text("icon"),
	boolean("immersive"),
	text("label"),
	text("launchMode"),
	text("lockTaskMode"),
	{Name: "maxRecents", Rule: RuleInt, Default: Int(16)},
	{Name: "maxAspectRatio", Rule: RuleReal, Default: Real(1.33)},
	boolean("multiprocess"),
	boolean("noHistory"),
	text("parentActivityName"),
	text("persistableMode"),
	text("permission"),
	text("process"),
	boolean("relinquishTaskIdentity"),
	boolean("requireContentUriPermissionFromCaller"),
	boolean("resizeableActivity"),
	text("screenOrientation"),
	boolean("showForAllUsers"),
	boolean("stateNotNeeded"),
	boolean("supportsPictureInPicture"),
	text("taskAffinity"),
	text("theme"),
	text("uiOptions"),
	text("windowSoftInputMode"),
}

var serviceSchema = []AttrSpec{
	text("name"),
	text("description"),
	boolean("directBootAware"),
	boolean("enabled"),
	boolean("exported"),
	text("foregroundServiceType"),
	text("icon"),
	boolean("isolatedProcess"),
	text("label"),
	text("permission"),
	text("process"),
	boolean("stopWithTask"),
}

var receiverSchema = []AttrSpec{
	text("name"),
	boolean("directBootAware"),
	boolean("enabled"),
	boolean("exported"),
	text("icon"),
	text("label"),
	text("permission"),
	text("process"),
}

var providerSchema = []AttrSpec{
	text("name"),
	text("authorities"),
	boolean("directBootAware"),
	boolean("enabled"),
	boolean("exported"),
	boolean("grantUriPermissions"),
	{Name: "initOrder", Rule: RuleInt},
	text("label"),
	boolean("multiprocess"),
	text("permission"),
	text("process"),
	text("readPermission"),
	boolean("syncable"),
	text("writePermission"),
}

var schemas = map[ComponentKind][]AttrSpec{
	KindApplication: applicationSchema,
	KindActivity:    activitySchema,
	KindService:     serviceSchema,
	KindReceiver:    receiverSchema,
	KindProvider:    providerSchema,
}

var schemaIndex = buildSchemaIndex()

func buildSchemaIndex() map[ComponentKind]map[string]int {
	idx := make(map[ComponentKind]map[string]int, len(schemas))
	for kind, specs := range schemas {
		m := make(map[string]int, len(specs))
		for i, spec := range specs {
			m[spec.Name] = i
		}
		idx[kind] = m
	}
	return idx
}

// Schema returns the ordered attribute schema of a kind. The returned slice
// must not be modified.
func Schema(kind ComponentKind) []AttrSpec {
	return schemas[kind]
}

// AttrIndex returns the position of name in the kind's schema, or -1.
func AttrIndex(kind ComponentKind, name string) int {
	if i, ok := schemaIndex[kind][name]; ok {
		return i
	}
	return -1
}

// TableName returns the repository table that stores components of kind.
func TableName(kind ComponentKind) string {
	switch kind {
	case KindApplication:
		return "application"
	case KindActivity:
		return "activities"
	case KindService:
		return "services"
	case KindReceiver:
		return "receivers"
	case KindProvider:
		return "providers"
	default:
		return ""
	}
}
