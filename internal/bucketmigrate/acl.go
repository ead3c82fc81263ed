package bucketmigrate

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

const (
	grantWarningTemplateConstant         = "acl: dropped %s grant for %s: %s"
	missingGranteeReasonConstant         = "grant has no grantee"
	missingIdentifierReasonConstant      = "grantee has no canonical id or uri"
	emailGranteeReasonConstant           = "email grantees cannot be resolved in the target account"
	unknownTargetOwnerReasonConstant     = "target bucket owner is unknown"
	unsupportedGranteeTypeReasonTemplate = "unsupported grantee type %q"
	anonymousGranteeDescriptionConstant  = "<none>"
)

// TranslateGrants maps a source object's grants onto the target account. Grants held by the source
// owner are reassigned to the target owner; other canonical users and groups are carried unchanged.
// Grants that cannot be expressed in the target account are dropped and described in the warnings.
func TranslateGrants(sourceOwnerID string, targetOwnerID string, grants []types.Grant) ([]types.Grant, []string) {
	translated := make([]types.Grant, 0, len(grants))
	var warnings []string
	seen := make(map[string]struct{}, len(grants))

	appendGrant := func(grantee types.Grantee, permission types.Permission) {
		identity := string(grantee.Type) + "|" + aws.ToString(grantee.ID) + "|" + aws.ToString(grantee.URI) + "|" + string(permission)
		if _, duplicate := seen[identity]; duplicate {
			return
		}
		seen[identity] = struct{}{}
		granteeCopy := grantee
		translated = append(translated, types.Grant{Grantee: &granteeCopy, Permission: permission})
	}

	for _, grant := range grants {
		if grant.Grantee == nil {
			warnings = append(warnings, fmt.Sprintf(grantWarningTemplateConstant, grant.Permission, anonymousGranteeDescriptionConstant, missingGranteeReasonConstant))
			continue
		}
		grantee := *grant.Grantee

		switch grantee.Type {
		case types.TypeCanonicalUser:
			granteeID := aws.ToString(grantee.ID)
			if len(granteeID) == 0 {
				warnings = append(warnings, fmt.Sprintf(grantWarningTemplateConstant, grant.Permission, describeGrantee(grantee), missingIdentifierReasonConstant))
				continue
			}
			if len(sourceOwnerID) > 0 && granteeID == sourceOwnerID {
				if len(targetOwnerID) == 0 {
					warnings = append(warnings, fmt.Sprintf(grantWarningTemplateConstant, grant.Permission, describeGrantee(grantee), unknownTargetOwnerReasonConstant))
					continue
				}
				appendGrant(types.Grantee{Type: types.TypeCanonicalUser, ID: aws.String(targetOwnerID)}, grant.Permission)
				continue
			}
			appendGrant(types.Grantee{Type: types.TypeCanonicalUser, ID: aws.String(granteeID)}, grant.Permission)
		case types.TypeGroup:
			if len(aws.ToString(grantee.URI)) == 0 {
				warnings = append(warnings, fmt.Sprintf(grantWarningTemplateConstant, grant.Permission, describeGrantee(grantee), missingIdentifierReasonConstant))
				continue
			}
			appendGrant(types.Grantee{Type: types.TypeGroup, URI: grantee.URI}, grant.Permission)
		case types.TypeAmazonCustomerByEmail:
			warnings = append(warnings, fmt.Sprintf(grantWarningTemplateConstant, grant.Permission, describeGrantee(grantee), emailGranteeReasonConstant))
		default:
			warnings = append(warnings, fmt.Sprintf(grantWarningTemplateConstant, grant.Permission, describeGrantee(grantee), fmt.Sprintf(unsupportedGranteeTypeReasonTemplate, grantee.Type)))
		}
	}

	return translated, warnings
}

func describeGrantee(grantee types.Grantee) string {
	switch {
	case len(aws.ToString(grantee.ID)) > 0:
		return aws.ToString(grantee.ID)
	case len(aws.ToString(grantee.URI)) > 0:
		return aws.ToString(grantee.URI)
	case len(aws.ToString(grantee.EmailAddress)) > 0:
		return aws.ToString(grantee.EmailAddress)
	case len(aws.ToString(grantee.DisplayName)) > 0:
		return aws.ToString(grantee.DisplayName)
	default:
		return anonymousGranteeDescriptionConstant
	}
}
