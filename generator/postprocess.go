package generator

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var fenceRe = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*\n(.*?)\n?```$")

// PostProcess 把模型返回的文本解析为 Artifact 并做结构校验。
// Any failure here is a SchemaParseFailure; partial artifacts are never returned.
func PostProcess(raw string) (Artifact, error) {
	body := stripFence(strings.TrimSpace(raw))
	if body == "" {
		return Artifact{}, parseError(errors.New("model returned an empty document"))
	}

	var art Artifact
	dec := json.NewDecoder(strings.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&art); err != nil {
		return Artifact{}, parseError(fmt.Errorf("decode artifact: %w", err))
	}
	if dec.More() {
		return Artifact{}, parseError(errors.New("decode artifact: trailing data after document"))
	}
	if err := Validate(art); err != nil {
		return Artifact{}, parseError(err)
	}
	return art, nil
}

// Validate checks required fields. The question count is not enforced.
func Validate(art Artifact) error {
	var errs []error
	jd := art.JobDescription
	if strings.TrimSpace(jd.Title) == "" {
		errs = append(errs, errors.New("jobDescription.title is required"))
	}
	if strings.TrimSpace(jd.Summary) == "" {
		errs = append(errs, errors.New("jobDescription.summary is required"))
	}
	if len(jd.Responsibilities) == 0 {
		errs = append(errs, errors.New("jobDescription.responsibilities is required"))
	}
	if len(jd.Qualifications) == 0 {
		errs = append(errs, errors.New("jobDescription.qualifications is required"))
	}
	if len(art.InterviewGuide) == 0 {
		errs = append(errs, errors.New("interviewGuide must contain at least one question"))
	}
	for i, q := range art.InterviewGuide {
		if strings.TrimSpace(q.Question) == "" {
			errs = append(errs, fmt.Errorf("interviewGuide[%d].question is required", i))
		}
		if strings.TrimSpace(q.TargetSkill) == "" {
			errs = append(errs, fmt.Errorf("interviewGuide[%d].targetSkill is required", i))
		}
		if strings.TrimSpace(q.Rationale) == "" {
			errs = append(errs, fmt.Errorf("interviewGuide[%d].rationale is required", i))
		}
	}
	return errors.Join(errs...)
}

// 有些兼容接口会把 JSON 包在 ```json 代码块里。
func stripFence(s string) string {
	if m := fenceRe.FindStringSubmatch(s); len(m) == 2 {
		return strings.TrimSpace(m[1])
	}
	return s
}
