package main

import (
	"github.com/tbxark/convoform/agent"
	"github.com/tbxark/convoform/types"
)

const jobApplicationOverview = "Application for the Backend Engineer opening on the platform team. " +
	"We collect contact details, experience and availability to schedule a first interview."

func jobApplicationForm() agent.FormSpec {
	return agent.NewStaticForm(jobApplicationOverview, []types.Field{
		{
			FieldName:          "Full name",
			FieldDescription:   "Applicant's full legal name",
			FieldConfiguration: types.FieldConfiguration{InputType: types.InputText},
		},
		{
			FieldName:          "Email",
			FieldDescription:   "Email address used to schedule interviews",
			FieldConfiguration: types.FieldConfiguration{InputType: types.InputText},
		},
		{
			FieldName:          "Years of experience",
			FieldDescription:   "Professional backend experience in whole years",
			FieldConfiguration: types.FieldConfiguration{InputType: types.InputText},
		},
		{
			FieldName:        "Preferred stack",
			FieldDescription: "Language the applicant is most productive in",
			FieldConfiguration: types.FieldConfiguration{
				InputType: types.InputMultipleChoice,
				Options:   []string{"Go", "Rust", "Java", "Python"},
			},
		},
		{
			FieldName:          "Start date",
			FieldDescription:   "Earliest date the applicant can start",
			FieldConfiguration: types.FieldConfiguration{InputType: types.InputDatePicker},
		},
	})
}
