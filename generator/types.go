package generator

// Artifact 是一次生成调用的完整产出：职位描述 + 面试指南。
// Once built it is never patched; a regeneration replaces it wholesale.
type Artifact struct {
	JobDescription JobDescription      `json:"jobDescription"`
	InterviewGuide []InterviewQuestion `json:"interviewGuide"`
}

// JobDescription is the platform-formatted posting.
type JobDescription struct {
	Title            string   `json:"title" jsonschema:"description=Job title as it should appear on the posting"`
	CompanyName      string   `json:"companyName,omitempty"`
	Location         string   `json:"location,omitempty"`
	Summary          string   `json:"summary"`
	Responsibilities []string `json:"responsibilities"`
	Qualifications   []string `json:"qualifications"`
	Benefits         []string `json:"benefits,omitempty"`
	CallToAction     string   `json:"callToAction,omitempty"`
}

// InterviewQuestion 一道行为面试题（STAR）。
type InterviewQuestion struct {
	Question           string   `json:"question"`
	TargetSkill        string   `json:"targetSkill"`
	Rationale          string   `json:"rationale"`
	ExpectedIndicators []string `json:"expectedIndicators,omitempty"`
}

// Clone returns a deep copy so callers never share slices with the installed artifact.
func (a Artifact) Clone() Artifact {
	out := Artifact{JobDescription: a.JobDescription}
	out.JobDescription.Responsibilities = cloneStrings(a.JobDescription.Responsibilities)
	out.JobDescription.Qualifications = cloneStrings(a.JobDescription.Qualifications)
	out.JobDescription.Benefits = cloneStrings(a.JobDescription.Benefits)
	if a.InterviewGuide != nil {
		out.InterviewGuide = make([]InterviewQuestion, len(a.InterviewGuide))
		for i, q := range a.InterviewGuide {
			q.ExpectedIndicators = cloneStrings(q.ExpectedIndicators)
			out.InterviewGuide[i] = q
		}
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
