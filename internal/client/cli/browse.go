package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/iudanet/gradesubmission/internal/models"
)

var (
	studentHeaders = []string{"ID", "NAME", "BIRTH DATE"}
	courseHeaders  = []string{"ID", "CODE", "SUBJECT", "DESCRIPTION"}
	gradeHeaders   = []string{"ID", "COURSE", "STUDENT", "SCORE"}
)

func (c *Cli) studentsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "students",
		Short: "Browse students",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List all students",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.withToken(cmd.Context(), func(ctx context.Context, token string) error {
					students, err := c.backend.API.Students(ctx, token)
					if err != nil {
						return err
					}
					return c.printList(students, "students", studentHeaders, studentRows(students...))
				})
			},
		},
		&cobra.Command{
			Use:   "get <id>",
			Short: "Show a student",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID("id", args[0])
				if err != nil {
					return err
				}
				return c.withToken(cmd.Context(), func(ctx context.Context, token string) error {
					student, err := c.backend.API.Student(ctx, token, id)
					if err != nil {
						return err
					}
					return c.printItem(student, studentHeaders, studentRows(*student))
				})
			},
		},
	)

	return cmd
}

func (c *Cli) coursesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "courses",
		Short: "Browse courses",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List all courses",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.withToken(cmd.Context(), func(ctx context.Context, token string) error {
					courses, err := c.backend.API.Courses(ctx, token)
					if err != nil {
						return err
					}
					return c.printList(courses, "courses", courseHeaders, courseRows(courses...))
				})
			},
		},
		&cobra.Command{
			Use:   "get <id>",
			Short: "Show a course",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID("id", args[0])
				if err != nil {
					return err
				}
				return c.withToken(cmd.Context(), func(ctx context.Context, token string) error {
					course, err := c.backend.API.Course(ctx, token, id)
					if err != nil {
						return err
					}
					return c.printItem(course, courseHeaders, courseRows(*course))
				})
			},
		},
	)

	return cmd
}

func (c *Cli) gradesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grades",
		Short: "Browse grades",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List all grades",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.withToken(cmd.Context(), func(ctx context.Context, token string) error {
					grades, err := c.backend.API.Grades(ctx, token)
					if err != nil {
						return err
					}
					return c.printList(grades, "grades", gradeHeaders, gradeRows(grades...))
				})
			},
		},
		&cobra.Command{
			Use:   "get <courseId> <studentId>",
			Short: "Show the grade of a student in a course",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				courseID, err := parseID("courseId", args[0])
				if err != nil {
					return err
				}
				studentID, err := parseID("studentId", args[1])
				if err != nil {
					return err
				}
				return c.withToken(cmd.Context(), func(ctx context.Context, token string) error {
					grade, err := c.backend.API.Grade(ctx, token, courseID, studentID)
					if err != nil {
						return err
					}
					return c.printItem(grade, gradeHeaders, gradeRows(*grade))
				})
			},
		},
	)

	return cmd
}

// withToken выполняет fn с токеном сохраненной сессии
func (c *Cli) withToken(ctx context.Context, fn func(ctx context.Context, token string) error) error {
	auth, err := c.session(ctx)
	if err != nil {
		return err
	}
	return protected(fn(ctx, auth.Token))
}

func parseID(name, value string) (int64, error) {
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive integer", name, value)
	}
	return id, nil
}

func studentRows(students ...models.Student) [][]string {
	rows := make([][]string, 0, len(students))
	for _, s := range students {
		rows = append(rows, []string{strconv.FormatInt(s.ID, 10), s.Name, s.BirthDate.String()})
	}
	return rows
}

func courseRows(courses ...models.Course) [][]string {
	rows := make([][]string, 0, len(courses))
	for _, c := range courses {
		rows = append(rows, []string{strconv.FormatInt(c.ID, 10), c.Code, c.Subject, c.Description})
	}
	return rows
}

func gradeRows(grades ...models.Grade) [][]string {
	rows := make([][]string, 0, len(grades))
	for _, g := range grades {
		rows = append(rows, []string{
			strconv.FormatInt(g.ID, 10),
			g.Course.Code,
			g.Student.Name,
			g.Score,
		})
	}
	return rows
}
