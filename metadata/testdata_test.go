package metadata

import "strings"

const v4Doc = `<?xml version="1.0" encoding="utf-8"?>
<!-- TripPin service metadata -->
<?generator odata-service?>
<edmx:Edmx Version="4.0" xmlns:edmx="http://docs.oasis-open.org/odata/ns/edmx">
  <edmx:DataServices>
    <Schema Namespace="Trippin" xmlns="http://docs.oasis-open.org/odata/ns/edm">
      <EntityType Name="Person">
        <Key><PropertyRef Name="UserName"/></Key>
        <Property Name="UserName" Type="Edm.String" Nullable="false" />
        <Annotation Term="Core.Description" String="friends &amp; family"/>
        <!-- keep me -->
        <Documentation><![CDATA[<raw> & unescaped]]></Documentation>
      </EntityType>
    </Schema>
  </edmx:DataServices>
</edmx:Edmx>
`

const v3Doc = `<edmx:Edmx Version='1.0'   xmlns:edmx='http://schemas.microsoft.com/ado/2009/11/edmx'><edmx:DataServices m:DataServiceVersion="3.0" xmlns:m="http://schemas.microsoft.com/ado/2007/08/dataservices/metadata"/></edmx:Edmx>`

const unknownDoc = `<?xml version="1.0"?><Service xmlns="urn:example:not-edmx"><Item/></Service>`

// rootOf returns the exact text of the root element of doc.
func rootOf(doc string, open string) string {
	start := strings.Index(doc, open)
	end := strings.LastIndex(doc, ">")
	return doc[start : end+1]
}
