package schema

import "arcsight/envelope"

// envelopeV1toV2 adds the fields schema 2 introduced:
// meta.sandbox_policy_version (build default) and extensions (empty).
func envelopeV1toV2(obj map[string]interface{}) (map[string]interface{}, error) {
	out := copyObject(obj)

	meta, _ := out["meta"].(map[string]interface{})
	meta = copyObject(meta)
	if _, ok := meta["sandbox_policy_version"]; !ok {
		meta["sandbox_policy_version"] = envelope.SandboxPolicyVersion
	}
	out["meta"] = meta

	if _, ok := out["extensions"]; !ok {
		out["extensions"] = map[string]interface{}{}
	}

	version, _ := out["version"].(map[string]interface{})
	version = copyObject(version)
	version["schema"] = "2"
	out["version"] = version

	return out, nil
}

// configV1toV2 adds manifest_globs with its deterministic default.
func configV1toV2(obj map[string]interface{}) (map[string]interface{}, error) {
	out := copyObject(obj)

	if _, ok := out["manifest_globs"]; !ok {
		out["manifest_globs"] = []interface{}{"package.json"}
	}
	out["version"] = 2

	return out, nil
}

func copyObject(obj map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(obj))
	for k, v := range obj {
		out[k] = v
	}
	return out
}
